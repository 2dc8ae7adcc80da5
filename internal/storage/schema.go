package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createOntologyTables(tx); err != nil {
			return err
		}
		if err := createCodelistTables(tx); err != nil {
			return err
		}
		if err := createGraphCacheTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// version 0: file exists but was never initialized
	if version == 0 {
		return db.initializeSchema()
	}
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// createOntologyTables creates the tables holding imported releases.
// Releases are immutable once imported.
func createOntologyTables(tx *sql.Tx) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"releases", `
			CREATE TABLE IF NOT EXISTS releases (
				release_id TEXT PRIMARY KEY,
				coding_system TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				imported_at TEXT NOT NULL
			)
		`},
		{"concepts", `
			CREATE TABLE IF NOT EXISTS concepts (
				release_id TEXT NOT NULL REFERENCES releases(release_id) ON DELETE CASCADE,
				code TEXT NOT NULL,
				term TEXT NOT NULL,
				PRIMARY KEY (release_id, code)
			)
		`},
		{"concept_edges", `
			CREATE TABLE IF NOT EXISTS concept_edges (
				release_id TEXT NOT NULL REFERENCES releases(release_id) ON DELETE CASCADE,
				parent TEXT NOT NULL,
				child TEXT NOT NULL,
				PRIMARY KEY (release_id, parent, child)
			)
		`},
	}
	for _, s := range statements {
		if _, err := tx.Exec(s.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_concept_edges_child ON concept_edges(release_id, child)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create ontology index: %w", err)
		}
	}
	return nil
}

// createCodelistTables creates version, rule, search and status tables
func createCodelistTables(tx *sql.Tx) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"codelist_versions", `
			CREATE TABLE IF NOT EXISTS codelist_versions (
				version_id TEXT PRIMARY KEY,
				codelist_id TEXT NOT NULL,
				release_id TEXT NOT NULL REFERENCES releases(release_id),
				state TEXT NOT NULL CHECK (state IN ('draft', 'under_review', 'published')),
				fingerprint TEXT,
				parent_version_id TEXT REFERENCES codelist_versions(version_id),
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`},
		{"definition_rules", `
			CREATE TABLE IF NOT EXISTS definition_rules (
				version_id TEXT NOT NULL REFERENCES codelist_versions(version_id) ON DELETE CASCADE,
				code TEXT NOT NULL,
				kind TEXT NOT NULL CHECK (kind IN ('included', 'excluded')),
				PRIMARY KEY (version_id, code)
			)
		`},
		{"searches", `
			CREATE TABLE IF NOT EXISTS searches (
				version_id TEXT NOT NULL REFERENCES codelist_versions(version_id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				term TEXT NOT NULL DEFAULT '',
				code TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (version_id, position)
			)
		`},
		{"code_statuses", `
			CREATE TABLE IF NOT EXISTS code_statuses (
				version_id TEXT NOT NULL REFERENCES codelist_versions(version_id) ON DELETE CASCADE,
				code TEXT NOT NULL,
				status TEXT NOT NULL,
				PRIMARY KEY (version_id, code)
			)
		`},
	}
	for _, s := range statements {
		if _, err := tx.Exec(s.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_codelist_versions_codelist ON codelist_versions(codelist_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_code_statuses_status ON code_statuses(version_id, status)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create codelist index: %w", err)
		}
	}
	return nil
}

// createGraphCacheTable creates the write-once graph cache, one blob per version
func createGraphCacheTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS graph_cache (
			version_id TEXT PRIMARY KEY REFERENCES codelist_versions(version_id) ON DELETE CASCADE,
			blob BLOB NOT NULL,
			node_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create graph_cache table: %w", err)
	}
	return nil
}
