package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// GraphCache stores one encoded concept graph per codelist version. Entries
// are write-once: a version's graph never changes because its release never
// changes.
type GraphCache struct {
	q Querier
}

// NewGraphCache creates a graph cache over a *DB or a *sql.Tx
func NewGraphCache(q Querier) *GraphCache {
	return &GraphCache{q: q}
}

// Get retrieves a version's blob. ok is false on a miss.
func (c *GraphCache) Get(versionID string) (blob []byte, ok bool, err error) {
	err = c.q.QueryRow("SELECT blob FROM graph_cache WHERE version_id = ?", versionID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("graph cache lookup failed: %w", err)
	}
	return blob, true, nil
}

// Put stores a blob unless the version already has one. It reports whether
// the blob was written.
func (c *GraphCache) Put(versionID string, blob []byte, nodeCount int) (bool, error) {
	res, err := c.q.Exec(`
		INSERT OR IGNORE INTO graph_cache (version_id, blob, node_count, created_at)
		VALUES (?, ?, ?, ?)
	`, versionID, blob, nodeCount, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to write graph cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate drops a version's blob, for entries that fail to decode
func (c *GraphCache) Invalidate(versionID string) error {
	if _, err := c.q.Exec("DELETE FROM graph_cache WHERE version_id = ?", versionID); err != nil {
		return fmt.Errorf("failed to invalidate graph cache: %w", err)
	}
	return nil
}

// GraphCacheStats summarizes the cache table
type GraphCacheStats struct {
	Entries    int   `json:"entries" yaml:"entries"`
	TotalBytes int64 `json:"totalBytes" yaml:"totalBytes"`
	TotalNodes int64 `json:"totalNodes" yaml:"totalNodes"`
}

// Stats returns entry count and sizes
func (c *GraphCache) Stats() (GraphCacheStats, error) {
	var s GraphCacheStats
	err := c.q.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(length(blob)), 0), COALESCE(SUM(node_count), 0)
		FROM graph_cache
	`).Scan(&s.Entries, &s.TotalBytes, &s.TotalNodes)
	if err != nil {
		return GraphCacheStats{}, fmt.Errorf("failed to read graph cache stats: %w", err)
	}
	return s, nil
}
