package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	cerrors "codelists/internal/errors"
	"codelists/internal/ontology"
)

// OntologyStore answers hierarchy queries from imported releases. It
// implements ontology.Adapter and ontology.Evaluator.
type OntologyStore struct {
	db *DB
}

// NewOntologyStore creates an ontology store over db
func NewOntologyStore(db *DB) *OntologyStore {
	return &OntologyStore{db: db}
}

var (
	_ ontology.Adapter   = (*OntologyStore)(nil)
	_ ontology.Evaluator = (*OntologyStore)(nil)
)

// Seed codes are passed as one JSON array parameter and expanded with
// json_each, so query text does not grow with the number of codes.
const (
	ancestorEdgesSQL = `
		WITH RECURSIVE up(code) AS (
			SELECT value FROM json_each(?)
			UNION
			SELECT e.parent FROM concept_edges e JOIN up ON e.child = up.code
			WHERE e.release_id = ?
		)
		SELECT DISTINCT e.parent, e.child
		FROM concept_edges e JOIN up ON e.child = up.code
		WHERE e.release_id = ?
		ORDER BY e.parent, e.child`

	descendantEdgesSQL = `
		WITH RECURSIVE down(code) AS (
			SELECT value FROM json_each(?)
			UNION
			SELECT e.child FROM concept_edges e JOIN down ON e.parent = down.code
			WHERE e.release_id = ?
		)
		SELECT DISTINCT e.parent, e.child
		FROM concept_edges e JOIN down ON e.parent = down.code
		WHERE e.release_id = ?
		ORDER BY e.parent, e.child`

	// matches plus all of their descendants
	searchSQL = `
		WITH RECURSIVE hit(code) AS (
			SELECT code FROM concepts
			WHERE release_id = ? AND (
				(? != '' AND code = ?) OR
				(? != '' AND instr(lower(term), lower(?)) > 0)
			)
			UNION
			SELECT e.child FROM concept_edges e JOIN hit ON e.parent = hit.code
			WHERE e.release_id = ?
		)
		SELECT code FROM hit ORDER BY code`
)

func (s *OntologyStore) checkRelease(ctx context.Context, release string) error {
	var one int
	err := s.db.conn.QueryRowContext(ctx, "SELECT 1 FROM releases WHERE release_id = ?", release).Scan(&one)
	if err == sql.ErrNoRows {
		return cerrors.Newf(cerrors.ReleaseNotFound, "release %q has not been imported", release)
	}
	if err != nil {
		return fmt.Errorf("failed to look up release: %w", err)
	}
	return nil
}

func codesParam(codes []string) (string, error) {
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// KnownCodes implements ontology.Adapter
func (s *OntologyStore) KnownCodes(ctx context.Context, release string, codes []string) ([]string, error) {
	if err := s.checkRelease(ctx, release); err != nil {
		return nil, err
	}
	param, err := codesParam(codes)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT code FROM concepts
		WHERE release_id = ? AND code IN (SELECT value FROM json_each(?))
		ORDER BY code
	`, release, param)
	if err != nil {
		return nil, fmt.Errorf("failed to query known codes: %w", err)
	}
	return scanCodes(rows)
}

// AncestorRelationships implements ontology.Adapter
func (s *OntologyStore) AncestorRelationships(ctx context.Context, release string, codes []string) ([]ontology.Relationship, error) {
	return s.edges(ctx, ancestorEdgesSQL, release, codes)
}

// DescendantRelationships implements ontology.Adapter
func (s *OntologyStore) DescendantRelationships(ctx context.Context, release string, codes []string) ([]ontology.Relationship, error) {
	return s.edges(ctx, descendantEdgesSQL, release, codes)
}

func (s *OntologyStore) edges(ctx context.Context, query, release string, codes []string) ([]ontology.Relationship, error) {
	if err := s.checkRelease(ctx, release); err != nil {
		return nil, err
	}
	param, err := codesParam(codes)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.conn.QueryContext(ctx, query, param, release, release)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []ontology.Relationship
	for rows.Next() {
		var r ontology.Relationship
		if err := rows.Scan(&r.Parent, &r.Child); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// CodeToTerm implements ontology.Adapter
func (s *OntologyStore) CodeToTerm(ctx context.Context, release string, codes []string) (map[string]string, error) {
	if err := s.checkRelease(ctx, release); err != nil {
		return nil, err
	}
	param, err := codesParam(codes)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT code, term FROM concepts
		WHERE release_id = ? AND code IN (SELECT value FROM json_each(?))
	`, release, param)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	terms := make(map[string]string, len(codes))
	for rows.Next() {
		var code, term string
		if err := rows.Scan(&code, &term); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms[code] = term
	}
	return terms, rows.Err()
}

// Evaluate implements ontology.Evaluator. Term searches are
// case-insensitive substring matches on the preferred term.
func (s *OntologyStore) Evaluate(ctx context.Context, release string, search ontology.Search) ([]string, error) {
	if err := s.checkRelease(ctx, release); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(search.Code)
	term := ""
	if code == "" {
		term = strings.TrimSpace(search.Term)
		if term == "" {
			return nil, nil
		}
	}

	rows, err := s.db.conn.QueryContext(ctx, searchSQL, release, code, code, term, term, release)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate search %q: %w", search.String(), err)
	}
	return scanCodes(rows)
}

func scanCodes(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}
