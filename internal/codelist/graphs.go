package codelist

import (
	"context"

	cerrors "codelists/internal/errors"
	"codelists/internal/graph"
	"codelists/internal/status"
	"codelists/internal/storage"
)

// encodeGraph prepares a cache blob, or nil when caching is disabled.
func (e *Engine) encodeGraph(g *graph.Graph) ([]byte, error) {
	if !e.config.Cache.Enabled {
		return nil, nil
	}
	return graph.EncodeCache(g.Cache(), e.cacheLevel)
}

// storeGraph writes an encoded blob. A version's graph is written once.
func (e *Engine) storeGraph(q storage.Querier, versionID string, blob []byte, nodes int) error {
	if blob == nil {
		return nil
	}
	_, err := storage.NewGraphCache(q).Put(versionID, blob, nodes)
	return err
}

// loadGraph returns the graph of a version: from the cache blob when there is
// a readable one, otherwise rebuilt from the ontology.
func (e *Engine) loadGraph(ctx context.Context, v *storage.Version, statuses map[string]status.Status) (*graph.Graph, error) {
	cache := storage.NewGraphCache(e.db)
	if e.config.Cache.Enabled {
		blob, ok, err := cache.Get(v.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			g, err := decodeGraph(blob)
			if err == nil {
				return g, nil
			}
			if !cerrors.IsCode(err, cerrors.CacheCorrupt) {
				return nil, err
			}
			e.logger.Warn("Discarding unreadable graph cache", map[string]interface{}{
				"version": v.ID,
				"error":   err.Error(),
			})
			if err := cache.Invalidate(v.ID); err != nil {
				return nil, err
			}
		}
	}

	g, err := e.rebuildGraph(ctx, v.ReleaseID, statuses)
	if err != nil {
		return nil, err
	}

	blob, err := e.encodeGraph(g)
	if err != nil {
		return nil, err
	}
	if err := e.storeGraph(e.db, v.ID, blob, g.Len()); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeGraph(blob []byte) (*graph.Graph, error) {
	c, err := graph.DecodeCache(blob)
	if err != nil {
		return nil, err
	}
	return graph.FromCache(c)
}

// rebuildGraph reproduces the graph a version was stored with. Status rows
// cover exactly its nodes, and a built graph holds every ontology edge
// between its nodes, so the graph is the subgraph of their closure induced
// by those codes.
func (e *Engine) rebuildGraph(ctx context.Context, release string, statuses map[string]status.Status) (*graph.Graph, error) {
	codes := make([]string, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	full, _, err := graph.FromCodes(ctx, e.ontology, release, codes, graph.BuildOptions{IgnoreUnknown: true})
	if err != nil {
		return nil, err
	}
	g := full.Subgraph(codes)
	e.logger.Debug("Rebuilt concept graph", map[string]interface{}{
		"release": release,
		"nodes":   g.Len(),
		"edges":   g.NumEdges(),
	})
	return g, nil
}
