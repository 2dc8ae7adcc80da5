package codelist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"codelists/internal/codeset"
	"codelists/internal/definition"
	cerrors "codelists/internal/errors"
	"codelists/internal/graph"
	"codelists/internal/ontology"
	"codelists/internal/reconcile"
	"codelists/internal/status"
	"codelists/internal/storage"
)

// DraftRequest describes a new draft version.
type DraftRequest struct {
	CodelistID string
	// Release defaults to the configured default release
	Release  string
	Searches []ontology.Search
	// Definition holds explicit decisions to start from
	Definition definition.Definition
	// ParentID links the draft to the version it was derived from
	ParentID string
	// IgnoreUnknown drops decided codes the release does not have, on top
	// of the configured setting
	IgnoreUnknown bool
}

// Draft is a loaded codelist version.
type Draft struct {
	Version  *storage.Version
	Searches []ontology.Search
	Codeset  *codeset.Codeset
	// Dropped lists requested decisions on codes the release does not have
	Dropped []string
}

// Summary counts codes per status.
func (d *Draft) Summary() map[status.Status]int {
	return status.Counts(d.Codeset.Statuses())
}

// CreateDraft evaluates the searches, builds and caches the concept graph,
// resolves every status and stores the result as a new draft version.
func (e *Engine) CreateDraft(ctx context.Context, req DraftRequest) (*Draft, error) {
	if req.ParentID != "" {
		parent, err := e.getVersion(e.db, req.ParentID)
		if err != nil {
			return nil, err
		}
		if req.CodelistID == "" {
			req.CodelistID = parent.CodelistID
		}
		if req.CodelistID != parent.CodelistID {
			return nil, cerrors.Newf(cerrors.PreconditionFailed,
				"parent %s belongs to codelist %s, not %s", parent.ID, parent.CodelistID, req.CodelistID)
		}
	}
	if strings.TrimSpace(req.CodelistID) == "" {
		return nil, fmt.Errorf("codelist id is required")
	}
	release, err := e.resolveRelease(req.Release)
	if err != nil {
		return nil, err
	}
	searches, err := cleanSearches(req.Searches)
	if err != nil {
		return nil, err
	}
	if len(searches) == 0 && req.Definition.IsEmpty() {
		return nil, cerrors.New(cerrors.InvalidDefinition, "a draft needs at least one search or decision")
	}

	fresh, err := reconcile.Evaluate(ctx, e.ontology, release, searches)
	if err != nil {
		return nil, err
	}
	seeds := append(fresh, req.Definition.Included()...)
	seeds = append(seeds, req.Definition.Excluded()...)
	opts := graph.BuildOptions{IgnoreUnknown: req.IgnoreUnknown || e.config.Ontology.IgnoreUnknown}
	g, report, err := graph.FromCodes(ctx, e.ontology, release, seeds, opts)
	if err != nil {
		return nil, err
	}
	if len(report.UnknownCodes) > 0 {
		e.logger.Warn("Dropping decisions on unknown codes", map[string]interface{}{
			"release": release,
			"codes":   report.UnknownCodes,
		})
	}

	cs, err := codeset.New(req.Definition.Restrict(g), g)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	v := &storage.Version{
		ID:         e.newID(),
		CodelistID: req.CodelistID,
		ReleaseID:  release,
		State:      storage.StateDraft,
		ParentID:   req.ParentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.insertDraft(v, searches, cs); err != nil {
		return nil, err
	}

	e.logger.Info("Created draft", map[string]interface{}{
		"codelist": v.CodelistID,
		"version":  v.ID,
		"release":  release,
		"nodes":    report.TotalNodes,
		"included": len(cs.Codes()),
	})
	return &Draft{Version: v, Searches: searches, Codeset: cs, Dropped: report.UnknownCodes}, nil
}

// insertDraft stores a new version with all of its rows in one transaction.
func (e *Engine) insertDraft(v *storage.Version, searches []ontology.Search, cs *codeset.Codeset) error {
	blob, err := e.encodeGraph(cs.Graph())
	if err != nil {
		return err
	}
	err = e.db.WithTx(func(tx *sql.Tx) error {
		repo := storage.NewVersionRepository(tx)
		if err := repo.Create(v); err != nil {
			return err
		}
		if err := repo.SaveSearches(v.ID, searches); err != nil {
			return err
		}
		if err := repo.SaveStatuses(v.ID, cs.Statuses()); err != nil {
			return err
		}
		if err := repo.SaveDefinition(v.ID, cs.Compress()); err != nil {
			return err
		}
		return e.storeGraph(tx, v.ID, blob, cs.Graph().Len())
	})
	return wrapStorage("store draft", err)
}

// LoadDraft restores a version's graph and statuses.
func (e *Engine) LoadDraft(ctx context.Context, versionID string) (*Draft, error) {
	v, err := e.getVersion(e.db, versionID)
	if err != nil {
		return nil, err
	}
	repo := storage.NewVersionRepository(e.db)
	searches, err := repo.LoadSearches(v.ID)
	if err != nil {
		return nil, err
	}
	statuses, err := repo.LoadStatuses(v.ID)
	if err != nil {
		return nil, err
	}
	g, err := e.loadGraph(ctx, v, statuses)
	if err != nil {
		return nil, err
	}
	cs, err := codeset.FromStatuses(g, statuses)
	if err != nil {
		return nil, fmt.Errorf("stored statuses of %s do not match its graph: %w", v.ID, err)
	}
	return &Draft{Version: v, Searches: searches, Codeset: cs}, nil
}

// UpdateDraft applies overrides to a draft and stores the new statuses. The
// batch is all or nothing.
func (e *Engine) UpdateDraft(ctx context.Context, versionID string, overrides []codeset.Override) (*Draft, []codeset.Change, error) {
	d, err := e.LoadDraft(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireState(d.Version, storage.StateDraft, "update"); err != nil {
		return nil, nil, err
	}
	changes, err := d.Codeset.Update(overrides)
	if err != nil {
		return nil, nil, err
	}
	if len(changes) == 0 {
		return d, nil, nil
	}

	err = e.db.WithTx(func(tx *sql.Tx) error {
		repo := storage.NewVersionRepository(tx)
		if err := repo.SaveStatuses(versionID, d.Codeset.Statuses()); err != nil {
			return err
		}
		if err := repo.SaveDefinition(versionID, d.Codeset.Compress()); err != nil {
			return err
		}
		return repo.Touch(versionID)
	})
	if err != nil {
		return nil, nil, wrapStorage("update draft", err)
	}

	e.logger.Info("Updated draft", map[string]interface{}{
		"version":   versionID,
		"overrides": len(overrides),
		"changes":   len(changes),
	})
	return d, changes, nil
}

// cleanSearches trims searches and rejects ones with neither or both of
// term and code.
func cleanSearches(searches []ontology.Search) ([]ontology.Search, error) {
	out := make([]ontology.Search, 0, len(searches))
	for _, s := range searches {
		s.Term = strings.TrimSpace(s.Term)
		s.Code = strings.TrimSpace(s.Code)
		if (s.Term == "") == (s.Code == "") {
			return nil, cerrors.Newf(cerrors.InvalidDefinition,
				"search %q must have exactly one of term and code", s.String())
		}
		out = append(out, s)
	}
	return out, nil
}
