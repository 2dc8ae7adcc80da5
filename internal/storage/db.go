// Package storage persists ontology releases and codelist versions in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"codelists/internal/logging"
)

// connPragmas apply to every pooled connection.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

// DB is an open workspace database.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Querier is satisfied by both *DB and *sql.Tx, so repositories can run
// inside or outside a transaction.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Open opens the database at path, creating the file and its directory on
// first use, and brings the schema up to date.
func Open(path string, logger *logging.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// WAL is a property of the file, not the connection
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	db := &DB{conn: conn, logger: logger, path: path}
	if fresh {
		logger.Info("Creating codelists database", map[string]interface{}{"path": path})
		err = db.initializeSchema()
	} else {
		err = db.runMigrations()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	params := make([]string, len(connPragmas))
	for i, p := range connPragmas {
		params[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(params, "&")
}

// Close closes the database.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
func (db *DB) WithTx(fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Rollback failed", map[string]interface{}{
				"error":         err.Error(),
				"rollbackError": rbErr.Error(),
			})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Exec implements Querier.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query implements Querier.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow implements Querier.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
