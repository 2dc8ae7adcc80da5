package codelist

import (
	"context"
	"database/sql"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"codelists/internal/definition"
	cerrors "codelists/internal/errors"
	"codelists/internal/status"
	"codelists/internal/storage"
)

// Fingerprint identifies a flat code set independently of how it was
// defined. codes must be sorted.
func Fingerprint(codes []string) string {
	sum := blake2b.Sum256([]byte(strings.Join(codes, "\n")))
	return hex.EncodeToString(sum[:])
}

// SaveVersion freezes a draft for review. Every code must be decided, and
// the included codes must differ from the previous saved version.
func (e *Engine) SaveVersion(ctx context.Context, versionID string) (*storage.Version, error) {
	d, err := e.LoadDraft(ctx, versionID)
	if err != nil {
		return nil, err
	}
	v := d.Version
	if err := requireState(v, storage.StateDraft, "save"); err != nil {
		return nil, err
	}
	if unresolved := d.Codeset.Unresolved(); len(unresolved) > 0 {
		return nil, unresolvedError(v.ID, "saved", unresolved)
	}

	fp := Fingerprint(d.Codeset.Codes())
	previous, err := e.previousVersion(v)
	if err != nil {
		return nil, err
	}
	if previous != nil && previous.Fingerprint == fp {
		return nil, cerrors.Newf(cerrors.NoDifference,
			"version %s has the same codes as %s", v.ID, previous.ID).
			WithDetails(map[string]interface{}{"previous": previous.ID, "fingerprint": fp})
	}

	err = e.db.WithTx(func(tx *sql.Tx) error {
		repo := storage.NewVersionRepository(tx)
		if err := repo.SaveDefinition(v.ID, d.Codeset.Compress()); err != nil {
			return err
		}
		return repo.UpdateState(v.ID, storage.StateUnderReview, fp)
	})
	if err != nil {
		return nil, wrapStorage("save version", err)
	}

	e.logger.Info("Saved version", map[string]interface{}{
		"codelist":    v.CodelistID,
		"version":     v.ID,
		"fingerprint": fp,
	})
	return e.getVersion(e.db, v.ID)
}

// previousVersion is the parent when it has been saved, otherwise the
// latest saved version of the codelist.
func (e *Engine) previousVersion(v *storage.Version) (*storage.Version, error) {
	if v.ParentID != "" {
		parent, err := e.getVersion(e.db, v.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Fingerprint != "" {
			return parent, nil
		}
	}
	return storage.NewVersionRepository(e.db).LatestSaved(v.CodelistID, v.ID)
}

// Publish makes a saved version final. It is rejected while any code is
// undecided or in conflict.
func (e *Engine) Publish(ctx context.Context, versionID string) (*storage.Version, error) {
	v, err := e.getVersion(e.db, versionID)
	if err != nil {
		return nil, err
	}
	if err := requireState(v, storage.StateUnderReview, "publish"); err != nil {
		return nil, err
	}

	repo := storage.NewVersionRepository(e.db)
	counts, err := repo.CountStatuses(v.ID)
	if err != nil {
		return nil, err
	}
	if counts[status.Undecided]+counts[status.Conflict] > 0 {
		d, err := e.LoadDraft(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		return nil, unresolvedError(v.ID, "published", d.Codeset.Unresolved())
	}

	if err := repo.UpdateState(v.ID, storage.StatePublished, ""); err != nil {
		return nil, err
	}
	e.logger.Info("Published version", map[string]interface{}{
		"codelist": v.CodelistID,
		"version":  v.ID,
	})
	return e.getVersion(e.db, v.ID)
}

func unresolvedError(versionID, action string, codes []string) error {
	return cerrors.Newf(cerrors.PreconditionFailed,
		"version %s cannot be %s: %d code(s) are undecided or in conflict", versionID, action, len(codes)).
		WithDetails(map[string]interface{}{"version": versionID, "codes": codes})
}

// ExportDefinition returns the compressed definition of a version as a
// rules file.
func (e *Engine) ExportDefinition(ctx context.Context, versionID string) (definition.File, error) {
	v, err := e.getVersion(e.db, versionID)
	if err != nil {
		return definition.File{}, err
	}
	def, ok, err := storage.NewVersionRepository(e.db).LoadDefinition(v.ID)
	if err != nil {
		return definition.File{}, err
	}
	if !ok {
		d, err := e.LoadDraft(ctx, v.ID)
		if err != nil {
			return definition.File{}, err
		}
		def = d.Codeset.Compress()
	}
	return definition.NewFile(v.ReleaseID, def), nil
}
