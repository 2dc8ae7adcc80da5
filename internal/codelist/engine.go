// Package codelist is the host application around the codelist algorithms.
// It persists versions, searches and statuses, caches concept graphs, and
// drives the draft, save, publish and reconcile lifecycle.
package codelist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"codelists/internal/config"
	cerrors "codelists/internal/errors"
	"codelists/internal/logging"
	"codelists/internal/ontology"
	"codelists/internal/storage"
)

// Engine coordinates storage, the ontology and the codelist algorithms.
type Engine struct {
	db       *storage.DB
	logger   *logging.Logger
	config   *config.Config
	ontology *storage.OntologyStore
	releases *storage.ReleaseRepository

	cacheLevel zstd.EncoderLevel

	// overridable in tests
	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine over an open database.
func NewEngine(db *storage.DB, logger *logging.Logger, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		db:         db,
		logger:     logger,
		config:     cfg,
		ontology:   storage.NewOntologyStore(db),
		releases:   storage.NewReleaseRepository(db),
		cacheLevel: zstd.EncoderLevelFromZstd(cfg.Cache.CompressionLevel),
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Ontology exposes the sqlite-backed ontology adapter.
func (e *Engine) Ontology() *storage.OntologyStore {
	return e.ontology
}

// ImportRelease loads a release file and stores it.
func (e *Engine) ImportRelease(path string) (*storage.ReleaseInfo, error) {
	rel, err := ontology.LoadReleaseFile(path)
	if err != nil {
		return nil, err
	}
	return e.releases.Import(rel)
}

// ListReleases returns every imported release.
func (e *Engine) ListReleases() ([]storage.ReleaseInfo, error) {
	return e.releases.List()
}

// Terms maps codes to their preferred terms in release.
func (e *Engine) Terms(ctx context.Context, release string, codes []string) (map[string]string, error) {
	return e.ontology.CodeToTerm(ctx, release, codes)
}

// ListVersions returns a codelist's versions, oldest first.
func (e *Engine) ListVersions(codelistID string) ([]*storage.Version, error) {
	return storage.NewVersionRepository(e.db).ListByCodelist(codelistID)
}

// CacheStats summarizes the stored concept graphs.
func (e *Engine) CacheStats() (storage.GraphCacheStats, error) {
	return storage.NewGraphCache(e.db).Stats()
}

// resolveRelease applies the configured default and checks the release exists.
func (e *Engine) resolveRelease(release string) (string, error) {
	if release == "" {
		release = e.config.Ontology.DefaultRelease
	}
	if release == "" {
		return "", cerrors.New(cerrors.ReleaseNotFound, "no release given and no default release configured")
	}
	info, err := e.releases.Get(release)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", cerrors.Newf(cerrors.ReleaseNotFound, "release %q has not been imported", release).
			WithDetails(map[string]interface{}{"release": release})
	}
	return release, nil
}

// getVersion loads a version or fails with NOT_FOUND.
func (e *Engine) getVersion(q storage.Querier, id string) (*storage.Version, error) {
	v, err := storage.NewVersionRepository(q).Get(id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, cerrors.Newf(cerrors.NotFound, "codelist version %s not found", id).
			WithDetails(map[string]interface{}{"version": id})
	}
	return v, nil
}

func requireState(v *storage.Version, want storage.VersionState, action string) error {
	if v.State == want {
		return nil
	}
	return cerrors.Newf(cerrors.PreconditionFailed, "cannot %s version %s in state %s", action, v.ID, v.State).
		WithDetails(map[string]interface{}{"version": v.ID, "state": v.State, "required": want})
}

func wrapStorage(action string, err error) error {
	if cerrors.CodeOf(err) != "" {
		return err
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
