package status

import (
	"sort"

	"codelists/internal/graph"
)

// Set is a set of codes.
type Set map[string]struct{}

// NewSet builds a Set from codes.
func NewSet(codes ...string) Set {
	s := make(Set, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the members in order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// NodeStatus resolves a single code. An explicit decision on the code wins.
// Otherwise the code inherits from its nearest decided ancestors: the decided
// ancestors that are not themselves ancestors of another decided ancestor of
// the code. They are collected over every path through the DAG, so two
// nearest decisions that disagree give Conflict.
//
// included and excluded must be disjoint. Codes outside g are never decided
// ancestors of anything.
func NodeStatus(g *graph.Graph, code string, included, excluded Set) Status {
	if included.Has(code) {
		return Included
	}
	if excluded.Has(code) {
		return Excluded
	}

	var decided []string
	for _, a := range g.Ancestors(code) {
		if included.Has(a) || excluded.Has(a) {
			decided = append(decided, a)
		}
	}
	return inherited(g.FilterToUltimateDescendants(decided), included)
}

// ResolveAll resolves every node of g in one topological pass.
func ResolveAll(g *graph.Graph, included, excluded Set) map[string]Status {
	w := NewWalker(g, included, excluded)
	out := make(map[string]Status, g.Len())
	for _, code := range g.TopologicalOrder() {
		w.Inherit(code)
		out[code] = w.Status(code)
	}
	return out
}

func inherited(nearest []string, included Set) Status {
	if len(nearest) == 0 {
		return Undecided
	}
	var inc, exc int
	for _, c := range nearest {
		if included.Has(c) {
			inc++
		} else {
			exc++
		}
	}
	switch {
	case inc > 0 && exc > 0:
		return Conflict
	case inc > 0:
		return IncludedInherited
	default:
		return ExcludedInherited
	}
}

// Walker resolves a graph in topological order while decisions are still
// being made. A code's inherited status depends only on its ancestors, so a
// decision recorded for a code after Inherit(code) is seen by every
// descendant visited later.
type Walker struct {
	g        *graph.Graph
	included Set
	excluded Set
	nearest  map[string][]string
}

// NewWalker starts a walk from copies of the given decisions.
func NewWalker(g *graph.Graph, included, excluded Set) *Walker {
	w := &Walker{
		g:        g,
		included: make(Set, len(included)),
		excluded: make(Set, len(excluded)),
		nearest:  make(map[string][]string, g.Len()),
	}
	for c := range included {
		w.included[c] = struct{}{}
	}
	for c := range excluded {
		w.excluded[c] = struct{}{}
	}
	return w
}

// Inherit computes and records the nearest decided ancestors of code and
// returns the status code would have without a decision of its own. Every
// parent of code must already have been visited.
func (w *Walker) Inherit(code string) Status {
	candidates := make(map[string]struct{})
	for _, p := range w.g.Parents(code) {
		if w.decided(p) {
			candidates[p] = struct{}{}
			continue
		}
		for _, n := range w.nearest[p] {
			candidates[n] = struct{}{}
		}
	}

	nearest := make([]string, 0, len(candidates))
	for c := range candidates {
		shadowed := false
		for other := range candidates {
			if other != c && w.g.IsAncestor(c, other) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			nearest = append(nearest, c)
		}
	}
	w.nearest[code] = nearest
	return inherited(nearest, w.included)
}

// Status returns the resolved status of a visited code.
func (w *Walker) Status(code string) Status {
	if w.included.Has(code) {
		return Included
	}
	if w.excluded.Has(code) {
		return Excluded
	}
	return inherited(w.nearest[code], w.included)
}

// Include records an explicit include decision.
func (w *Walker) Include(code string) {
	delete(w.excluded, code)
	w.included[code] = struct{}{}
}

// Exclude records an explicit exclude decision.
func (w *Walker) Exclude(code string) {
	delete(w.included, code)
	w.excluded[code] = struct{}{}
}

// Decisions returns the walker's current explicit sets.
func (w *Walker) Decisions() (included, excluded []string) {
	return w.included.Sorted(), w.excluded.Sorted()
}

func (w *Walker) decided(code string) bool {
	return w.included.Has(code) || w.excluded.Has(code)
}
