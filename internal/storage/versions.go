package storage

import (
	"database/sql"
	"fmt"
	"time"

	"codelists/internal/definition"
	"codelists/internal/ontology"
	"codelists/internal/status"
)

// VersionState is the lifecycle state of a codelist version
type VersionState string

const (
	// StateDraft versions accept edits
	StateDraft VersionState = "draft"
	// StateUnderReview versions are saved and awaiting publication
	StateUnderReview VersionState = "under_review"
	// StatePublished versions are final
	StatePublished VersionState = "published"
)

// timeFormat is fixed width so stored timestamps sort lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Version represents a codelist_versions record
type Version struct {
	ID         string       `json:"id" yaml:"id"`
	CodelistID string       `json:"codelistId" yaml:"codelistId"`
	ReleaseID  string       `json:"release" yaml:"release"`
	State      VersionState `json:"state" yaml:"state"`
	// Fingerprint of the included code set, set when the version is saved
	Fingerprint string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	ParentID    string    `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// VersionRepository provides access to codelist versions and the rows that
// hang off them: definition rules, searches and code statuses
type VersionRepository struct {
	q Querier
}

// NewVersionRepository creates a repository over a *DB or a *sql.Tx
func NewVersionRepository(q Querier) *VersionRepository {
	return &VersionRepository{q: q}
}

// Create inserts a new version
func (r *VersionRepository) Create(v *Version) error {
	_, err := r.q.Exec(`
		INSERT INTO codelist_versions (
			version_id, codelist_id, release_id, state, fingerprint,
			parent_version_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID,
		v.CodelistID,
		v.ReleaseID,
		string(v.State),
		nullString(v.Fingerprint),
		nullString(v.ParentID),
		v.CreatedAt.UTC().Format(timeFormat),
		v.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}
	return nil
}

const versionColumns = `version_id, codelist_id, release_id, state, fingerprint,
	parent_version_id, created_at, updated_at`

func scanVersion(scan func(dest ...interface{}) error) (*Version, error) {
	var v Version
	var state, createdAt, updatedAt string
	var fingerprint, parent sql.NullString

	if err := scan(&v.ID, &v.CodelistID, &v.ReleaseID, &state, &fingerprint, &parent, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.State = VersionState(state)
	v.Fingerprint = fingerprint.String
	v.ParentID = parent.String

	var err error
	if v.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at format: %w", err)
	}
	if v.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at format: %w", err)
	}
	return &v, nil
}

// Get retrieves a version by ID. Returns nil if not found.
func (r *VersionRepository) Get(id string) (*Version, error) {
	row := r.q.QueryRow("SELECT "+versionColumns+" FROM codelist_versions WHERE version_id = ?", id)
	v, err := scanVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListByCodelist returns a codelist's versions, oldest first
func (r *VersionRepository) ListByCodelist(codelistID string) ([]*Version, error) {
	rows, err := r.q.Query("SELECT "+versionColumns+` FROM codelist_versions
		WHERE codelist_id = ? ORDER BY created_at, version_id`, codelistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var out []*Version
	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LatestSaved returns the most recent version of a codelist that has a
// fingerprint, ignoring excludeID. Returns nil if there is none.
func (r *VersionRepository) LatestSaved(codelistID, excludeID string) (*Version, error) {
	row := r.q.QueryRow("SELECT "+versionColumns+` FROM codelist_versions
		WHERE codelist_id = ? AND version_id != ? AND fingerprint IS NOT NULL
		ORDER BY created_at DESC, version_id DESC LIMIT 1`, codelistID, excludeID)
	v, err := scanVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest saved version: %w", err)
	}
	return v, nil
}

// UpdateState moves a version to a new state, recording its fingerprint
func (r *VersionRepository) UpdateState(id string, state VersionState, fingerprint string) error {
	_, err := r.q.Exec(`
		UPDATE codelist_versions
		SET state = ?, fingerprint = COALESCE(?, fingerprint), updated_at = ?
		WHERE version_id = ?
	`, string(state), nullString(fingerprint), time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to update version state: %w", err)
	}
	return nil
}

// Touch bumps updated_at
func (r *VersionRepository) Touch(id string) error {
	_, err := r.q.Exec("UPDATE codelist_versions SET updated_at = ? WHERE version_id = ?",
		time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}
	return nil
}

// SaveDefinition replaces a version's definition rules
func (r *VersionRepository) SaveDefinition(versionID string, def definition.Definition) error {
	if _, err := r.q.Exec("DELETE FROM definition_rules WHERE version_id = ?", versionID); err != nil {
		return fmt.Errorf("failed to clear definition rules: %w", err)
	}
	for _, rule := range def.Rules() {
		kind := "included"
		if rule.Status == status.Excluded {
			kind = "excluded"
		}
		if _, err := r.q.Exec("INSERT INTO definition_rules (version_id, code, kind) VALUES (?, ?, ?)",
			versionID, rule.Code, kind); err != nil {
			return fmt.Errorf("failed to insert definition rule: %w", err)
		}
	}
	return nil
}

// LoadDefinition reads a version's definition rules. ok is false when the
// version has no stored rules.
func (r *VersionRepository) LoadDefinition(versionID string) (def definition.Definition, ok bool, err error) {
	rows, err := r.q.Query("SELECT code, kind FROM definition_rules WHERE version_id = ? ORDER BY code", versionID)
	if err != nil {
		return definition.Definition{}, false, fmt.Errorf("failed to load definition rules: %w", err)
	}
	defer rows.Close()

	var included, excluded []string
	for rows.Next() {
		var code, kind string
		if err := rows.Scan(&code, &kind); err != nil {
			return definition.Definition{}, false, fmt.Errorf("failed to scan definition rule: %w", err)
		}
		if kind == "excluded" {
			excluded = append(excluded, code)
		} else {
			included = append(included, code)
		}
	}
	if err := rows.Err(); err != nil {
		return definition.Definition{}, false, err
	}
	if len(included)+len(excluded) == 0 {
		return definition.Definition{}, false, nil
	}

	def, err = definition.New(included, excluded)
	if err != nil {
		return definition.Definition{}, false, err
	}
	return def, true, nil
}

// SaveSearches replaces a version's searches, preserving their order
func (r *VersionRepository) SaveSearches(versionID string, searches []ontology.Search) error {
	if _, err := r.q.Exec("DELETE FROM searches WHERE version_id = ?", versionID); err != nil {
		return fmt.Errorf("failed to clear searches: %w", err)
	}
	for i, s := range searches {
		if _, err := r.q.Exec("INSERT INTO searches (version_id, position, term, code) VALUES (?, ?, ?, ?)",
			versionID, i, s.Term, s.Code); err != nil {
			return fmt.Errorf("failed to insert search: %w", err)
		}
	}
	return nil
}

// LoadSearches reads a version's searches in order
func (r *VersionRepository) LoadSearches(versionID string) ([]ontology.Search, error) {
	rows, err := r.q.Query("SELECT term, code FROM searches WHERE version_id = ? ORDER BY position", versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load searches: %w", err)
	}
	defer rows.Close()

	var out []ontology.Search
	for rows.Next() {
		var s ontology.Search
		if err := rows.Scan(&s.Term, &s.Code); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveStatuses replaces a version's status rows, one per code
func (r *VersionRepository) SaveStatuses(versionID string, statuses map[string]status.Status) error {
	if _, err := r.q.Exec("DELETE FROM code_statuses WHERE version_id = ?", versionID); err != nil {
		return fmt.Errorf("failed to clear statuses: %w", err)
	}
	for code, s := range statuses {
		if _, err := r.q.Exec("INSERT INTO code_statuses (version_id, code, status) VALUES (?, ?, ?)",
			versionID, code, string(s)); err != nil {
			return fmt.Errorf("failed to insert status: %w", err)
		}
	}
	return nil
}

// LoadStatuses reads a version's status rows
func (r *VersionRepository) LoadStatuses(versionID string) (map[string]status.Status, error) {
	rows, err := r.q.Query("SELECT code, status FROM code_statuses WHERE version_id = ?", versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]status.Status)
	for rows.Next() {
		var code, raw string
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		s, err := status.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("stored status for %s: %w", code, err)
		}
		out[code] = s
	}
	return out, rows.Err()
}

// CountStatuses tallies a version's status rows without loading them
func (r *VersionRepository) CountStatuses(versionID string) (map[status.Status]int, error) {
	rows, err := r.q.Query("SELECT status, COUNT(*) FROM code_statuses WHERE version_id = ? GROUP BY status", versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[status.Status]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		out[status.Status(raw)] = n
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
