package storage

import (
	"database/sql"
	"fmt"
	"time"

	cerrors "codelists/internal/errors"
	"codelists/internal/ontology"
)

// ReleaseInfo describes an imported ontology release
type ReleaseInfo struct {
	ID           string    `json:"id" yaml:"id"`
	CodingSystem string    `json:"codingSystem" yaml:"codingSystem"`
	Name         string    `json:"name" yaml:"name"`
	ImportedAt   time.Time `json:"importedAt" yaml:"importedAt"`
	Concepts     int       `json:"concepts" yaml:"concepts"`
	Edges        int       `json:"edges" yaml:"edges"`
}

// ReleaseRepository provides access to the releases, concepts and
// concept_edges tables
type ReleaseRepository struct {
	db *DB
}

// NewReleaseRepository creates a new release repository
func NewReleaseRepository(db *DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Import stores a validated release. A release ID can be imported once.
func (r *ReleaseRepository) Import(rel *ontology.Release) (*ReleaseInfo, error) {
	if err := rel.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.Get(rel.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cerrors.Newf(cerrors.PreconditionFailed, "release %s is already imported", rel.ID).
			WithDetails(map[string]interface{}{"release": rel.ID, "importedAt": existing.ImportedAt})
	}

	now := time.Now().UTC()
	edges := rel.Relationships()
	err = r.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO releases (release_id, coding_system, name, imported_at)
			VALUES (?, ?, ?, ?)
		`, rel.ID, rel.CodingSystem, rel.Name, now.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to insert release: %w", err)
		}

		conceptStmt, err := tx.Prepare("INSERT INTO concepts (release_id, code, term) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare concept insert: %w", err)
		}
		defer conceptStmt.Close()
		for _, c := range rel.Concepts {
			if _, err := conceptStmt.Exec(rel.ID, c.Code, c.Term); err != nil {
				return fmt.Errorf("failed to insert concept %s: %w", c.Code, err)
			}
		}

		edgeStmt, err := tx.Prepare("INSERT OR IGNORE INTO concept_edges (release_id, parent, child) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare edge insert: %w", err)
		}
		defer edgeStmt.Close()
		for _, e := range edges {
			if _, err := edgeStmt.Exec(rel.ID, e.Parent, e.Child); err != nil {
				return fmt.Errorf("failed to insert edge %s -> %s: %w", e.Parent, e.Child, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.db.logger.Info("Imported ontology release", map[string]interface{}{
		"release":  rel.ID,
		"concepts": len(rel.Concepts),
		"edges":    len(edges),
	})
	return r.Get(rel.ID)
}

// Get retrieves a release by ID. Returns nil if not found.
func (r *ReleaseRepository) Get(id string) (*ReleaseInfo, error) {
	var info ReleaseInfo
	var importedAt string

	err := r.db.QueryRow(`
		SELECT r.release_id, r.coding_system, r.name, r.imported_at,
		       (SELECT COUNT(*) FROM concepts c WHERE c.release_id = r.release_id),
		       (SELECT COUNT(*) FROM concept_edges e WHERE e.release_id = r.release_id)
		FROM releases r
		WHERE r.release_id = ?
	`, id).Scan(&info.ID, &info.CodingSystem, &info.Name, &importedAt, &info.Concepts, &info.Edges)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}

	info.ImportedAt, err = time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid imported_at format: %w", err)
	}
	return &info, nil
}

// List returns every imported release ordered by ID
func (r *ReleaseRepository) List() ([]ReleaseInfo, error) {
	rows, err := r.db.Query("SELECT release_id FROM releases ORDER BY release_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]ReleaseInfo, 0, len(ids))
	for _, id := range ids {
		info, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if info != nil {
			out = append(out, *info)
		}
	}
	return out, nil
}
