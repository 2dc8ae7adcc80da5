package ontology

import (
	"context"
	"sort"
	"strings"

	cerrors "codelists/internal/errors"
)

// Concept is one code of a release with its direct parents.
type Concept struct {
	Code    string   `toml:"code"`
	Term    string   `toml:"term"`
	Parents []string `toml:"parents"`
}

// Release is a complete ontology release, as imported from a release file.
type Release struct {
	ID           string    `toml:"id"`
	CodingSystem string    `toml:"coding_system"`
	Name         string    `toml:"name"`
	Concepts     []Concept `toml:"concepts"`
}

// Relationships flattens the release into parent -> child edges.
func (r *Release) Relationships() []Relationship {
	var rels []Relationship
	for _, c := range r.Concepts {
		for _, p := range c.Parents {
			rels = append(rels, Relationship{Parent: p, Child: c.Code})
		}
	}
	return rels
}

type releaseIndex struct {
	terms    map[string]string
	parents  map[string][]string
	children map[string][]string
}

// Memory is an Adapter and Evaluator over releases held in memory.
type Memory struct {
	releases map[string]*releaseIndex
}

// NewMemory indexes the given releases by ID.
func NewMemory(releases ...*Release) *Memory {
	m := &Memory{releases: make(map[string]*releaseIndex, len(releases))}
	for _, r := range releases {
		idx := &releaseIndex{
			terms:    make(map[string]string, len(r.Concepts)),
			parents:  make(map[string][]string),
			children: make(map[string][]string),
		}
		for _, c := range r.Concepts {
			idx.terms[c.Code] = c.Term
			for _, p := range c.Parents {
				idx.parents[c.Code] = append(idx.parents[c.Code], p)
				idx.children[p] = append(idx.children[p], c.Code)
			}
		}
		m.releases[r.ID] = idx
	}
	return m
}

func (m *Memory) release(id string) (*releaseIndex, error) {
	idx, ok := m.releases[id]
	if !ok {
		return nil, cerrors.Newf(cerrors.ReleaseNotFound, "release %q not loaded", id)
	}
	return idx, nil
}

// KnownCodes implements Adapter.
func (m *Memory) KnownCodes(_ context.Context, release string, codes []string) ([]string, error) {
	idx, err := m.release(release)
	if err != nil {
		return nil, err
	}
	known := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := idx.terms[c]; ok {
			known = append(known, c)
		}
	}
	return known, nil
}

// AncestorRelationships implements Adapter.
func (m *Memory) AncestorRelationships(_ context.Context, release string, codes []string) ([]Relationship, error) {
	idx, err := m.release(release)
	if err != nil {
		return nil, err
	}
	return walk(codes, idx.parents, func(from, to string) Relationship {
		return Relationship{Parent: to, Child: from}
	}), nil
}

// DescendantRelationships implements Adapter.
func (m *Memory) DescendantRelationships(_ context.Context, release string, codes []string) ([]Relationship, error) {
	idx, err := m.release(release)
	if err != nil {
		return nil, err
	}
	return walk(codes, idx.children, func(from, to string) Relationship {
		return Relationship{Parent: from, Child: to}
	}), nil
}

// CodeToTerm implements Adapter.
func (m *Memory) CodeToTerm(_ context.Context, release string, codes []string) (map[string]string, error) {
	idx, err := m.release(release)
	if err != nil {
		return nil, err
	}
	terms := make(map[string]string, len(codes))
	for _, c := range codes {
		if t, ok := idx.terms[c]; ok {
			terms[c] = t
		}
	}
	return terms, nil
}

// Evaluate implements Evaluator. Term searches are case-insensitive
// substring matches on the preferred term.
func (m *Memory) Evaluate(_ context.Context, release string, search Search) ([]string, error) {
	idx, err := m.release(release)
	if err != nil {
		return nil, err
	}
	var matches []string
	if search.Code != "" {
		if _, ok := idx.terms[search.Code]; ok {
			matches = append(matches, search.Code)
		}
	} else {
		needle := strings.ToLower(strings.TrimSpace(search.Term))
		if needle == "" {
			return nil, nil
		}
		for code, term := range idx.terms {
			if strings.Contains(strings.ToLower(term), needle) {
				matches = append(matches, code)
			}
		}
	}

	seen := make(map[string]struct{}, len(matches))
	for _, c := range matches {
		seen[c] = struct{}{}
	}
	for _, rel := range walk(matches, idx.children, func(from, to string) Relationship {
		return Relationship{Parent: from, Child: to}
	}) {
		seen[rel.Child] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// walk follows adjacency from the start codes, emitting each traversed edge once.
func walk(start []string, adj map[string][]string, edge func(from, to string) Relationship) []Relationship {
	visited := make(map[string]bool, len(start))
	queue := make([]string, 0, len(start))
	for _, c := range start {
		if !visited[c] {
			visited[c] = true
			queue = append(queue, c)
		}
	}

	var rels []Relationship
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			rels = append(rels, edge(cur, next))
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return rels
}
