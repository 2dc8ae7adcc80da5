package graph

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	cerrors "codelists/internal/errors"
)

// Cache is the persisted form of a graph, one per codelist version.
type Cache struct {
	Nodes     []string            `json:"nodes"`
	ParentMap map[string][]string `json:"parent_map"`
	ChildMap  map[string][]string `json:"child_map"`
}

// Cache returns the graph's cache blob. Only nodes with parents (or children)
// get a key in ParentMap (or ChildMap).
func (g *Graph) Cache() Cache {
	c := Cache{
		Nodes:     g.Nodes(),
		ParentMap: make(map[string][]string),
		ChildMap:  make(map[string][]string),
	}
	for i, code := range g.nodes {
		if len(g.parents[i]) > 0 {
			c.ParentMap[code] = g.codes(g.parents[i])
		}
		if len(g.children[i]) > 0 {
			c.ChildMap[code] = g.codes(g.children[i])
		}
	}
	return c
}

// FromCache rebuilds a graph without querying the ontology. The parent and
// child maps must describe the same edges.
func FromCache(c Cache) (*Graph, error) {
	var edges []Edge
	fromParents := make(map[Edge]bool)
	for child, parents := range c.ParentMap {
		for _, p := range parents {
			e := Edge{Parent: p, Child: child}
			fromParents[e] = true
			edges = append(edges, e)
		}
	}
	count := 0
	for parent, children := range c.ChildMap {
		for _, ch := range children {
			if !fromParents[Edge{Parent: parent, Child: ch}] {
				return nil, cerrors.Newf(cerrors.CacheCorrupt,
					"child_map edge %s -> %s missing from parent_map", parent, ch)
			}
			count++
		}
	}
	if count != len(fromParents) {
		return nil, cerrors.New(cerrors.CacheCorrupt, "parent_map has edges missing from child_map")
	}

	g, err := New(c.Nodes, edges)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CacheCorrupt, "invalid graph cache", err)
	}
	return g, nil
}

// EncodeCache serializes the cache blob as zstd-compressed JSON.
func EncodeCache(c Cache, level zstd.EncoderLevel) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph cache: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// DecodeCache reverses EncodeCache.
func DecodeCache(blob []byte) (Cache, error) {
	var c Cache
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return c, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return c, cerrors.Wrap(cerrors.CacheCorrupt, "graph cache is not valid zstd", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, cerrors.Wrap(cerrors.CacheCorrupt, "graph cache is not valid JSON", err)
	}
	return c, nil
}
