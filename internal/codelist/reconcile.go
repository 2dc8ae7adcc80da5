package codelist

import (
	"context"

	"codelists/internal/reconcile"
	"codelists/internal/storage"
)

// ReconcileReport is the outcome of reconciling a version to a newer release.
type ReconcileReport struct {
	From    string            `json:"from" yaml:"from"`
	Release string            `json:"release" yaml:"release"`
	Result  *reconcile.Result `json:"result" yaml:"result"`
	// Version is the new draft, set only when the result was applied
	Version *storage.Version `json:"version,omitempty" yaml:"version,omitempty"`
}

// ReconcileDraft re-runs a version's stored searches against release and
// diffs the outcome with the version. With apply set, the reconciled
// codelist is stored as a new draft whose parent is the version.
func (e *Engine) ReconcileDraft(ctx context.Context, versionID, release string, apply bool) (*ReconcileReport, error) {
	d, err := e.LoadDraft(ctx, versionID)
	if err != nil {
		return nil, err
	}
	release, err = e.resolveRelease(release)
	if err != nil {
		return nil, err
	}

	res, err := reconcile.Reconcile(ctx, reconcile.Input{
		Release:   release,
		Searches:  d.Searches,
		Previous:  d.Codeset,
		Adapter:   e.ontology,
		Evaluator: e.ontology,
	})
	if err != nil {
		return nil, err
	}

	log := e.logger.With(map[string]interface{}{
		"version": versionID,
		"to":      release,
	})
	fields := map[string]interface{}{
		"from":    d.Version.ReleaseID,
		"added":   len(res.Delta.Added),
		"removed": len(res.Delta.Removed),
		"changed": len(res.Delta.Changed),
	}
	if len(res.Dropped) > 0 {
		fields["dropped"] = res.Dropped
	}
	log.Info("Reconciled version", fields)

	report := &ReconcileReport{From: versionID, Release: release, Result: res}
	if !apply {
		return report, nil
	}

	cs, err := res.Apply()
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	v := &storage.Version{
		ID:         e.newID(),
		CodelistID: d.Version.CodelistID,
		ReleaseID:  release,
		State:      storage.StateDraft,
		ParentID:   d.Version.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.insertDraft(v, d.Searches, cs); err != nil {
		return nil, err
	}
	log.Info("Created reconciled draft", map[string]interface{}{"draft": v.ID})
	report.Version = v
	return report, nil
}
