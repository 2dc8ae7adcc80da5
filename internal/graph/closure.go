package graph

import "sort"

// ancestorSets computes every node's ancestor set in one topological pass:
// a node's ancestors are the union of each parent and that parent's ancestors.
func (g *Graph) ancestorSets() []indexSet {
	g.ancestorsOnce.Do(func() {
		sets := make([]indexSet, len(g.nodes))
		for _, i := range g.order {
			set := make(indexSet)
			for _, p := range g.parents[i] {
				set[p] = struct{}{}
				for a := range sets[p] {
					set[a] = struct{}{}
				}
			}
			sets[i] = set
		}
		g.ancestors = sets
	})
	return g.ancestors
}

// descendantSets is the mirror of ancestorSets, walking the order backwards.
func (g *Graph) descendantSets() []indexSet {
	g.descendantsOnce.Do(func() {
		sets := make([]indexSet, len(g.nodes))
		for k := len(g.order) - 1; k >= 0; k-- {
			i := g.order[k]
			set := make(indexSet)
			for _, c := range g.children[i] {
				set[c] = struct{}{}
				for d := range sets[c] {
					set[d] = struct{}{}
				}
			}
			sets[i] = set
		}
		g.descendants = sets
	})
	return g.descendants
}

// Ancestors returns every code reachable by following parent edges from
// code, sorted. A code reachable along several paths appears once.
func (g *Graph) Ancestors(code string) []string {
	idx, ok := g.nodeIdx[code]
	if !ok {
		return nil
	}
	return g.sortedCodes(g.ancestorSets()[idx])
}

// Descendants returns every code reachable by following child edges from
// code, sorted.
func (g *Graph) Descendants(code string) []string {
	idx, ok := g.nodeIdx[code]
	if !ok {
		return nil
	}
	return g.sortedCodes(g.descendantSets()[idx])
}

// IsAncestor reports whether ancestor is a strict ancestor of code.
func (g *Graph) IsAncestor(ancestor, code string) bool {
	a, ok := g.nodeIdx[ancestor]
	if !ok {
		return false
	}
	c, ok := g.nodeIdx[code]
	if !ok {
		return false
	}
	_, found := g.ancestorSets()[c][a]
	return found
}

// FilterToUltimateAncestors returns the codes that have no ancestor also in
// codes: the topmost elements of the sub-order codes induce. Codes that are
// not in the graph have no ancestors here and are always kept.
func (g *Graph) FilterToUltimateAncestors(codes []string) []string {
	return g.filterTo(codes, g.ancestorSets())
}

// FilterToUltimateDescendants returns the codes that have no descendant also
// in codes.
func (g *Graph) FilterToUltimateDescendants(codes []string) []string {
	return g.filterTo(codes, g.descendantSets())
}

func (g *Graph) filterTo(codes []string, related []indexSet) []string {
	members := make(indexSet, len(codes))
	unique := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		unique[c] = struct{}{}
		if idx, ok := g.nodeIdx[c]; ok {
			members[idx] = struct{}{}
		}
	}

	out := make([]string, 0, len(unique))
	for c := range unique {
		idx, ok := g.nodeIdx[c]
		if ok && intersects(related[idx], members) {
			continue
		}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func intersects(a, b indexSet) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func (g *Graph) sortedCodes(set indexSet) []string {
	out := make([]string, 0, len(set))
	for idx := range set {
		out = append(out, g.nodes[idx])
	}
	sort.Strings(out)
	return out
}

// Closure returns the sorted codes of g that are seeds, ancestors of a seed,
// or descendants of a seed. Seeds outside g are skipped.
func (g *Graph) Closure(seeds []string) []string {
	anc, desc := g.ancestorSets(), g.descendantSets()
	set := make(indexSet)
	for _, code := range seeds {
		i, ok := g.nodeIdx[code]
		if !ok {
			continue
		}
		set[i] = struct{}{}
		for a := range anc[i] {
			set[a] = struct{}{}
		}
		for d := range desc[i] {
			set[d] = struct{}{}
		}
	}
	return g.sortedCodes(set)
}

// Subgraph returns the graph induced by codes: those that are nodes of g and
// the edges of g between them.
func (g *Graph) Subgraph(codes []string) *Graph {
	var nodes []string
	for _, c := range codes {
		if g.Contains(c) {
			nodes = append(nodes, c)
		}
	}
	sub := make(map[string]bool, len(nodes))
	for _, c := range nodes {
		sub[c] = true
	}
	var edges []Edge
	for _, e := range g.Edges() {
		if sub[e.Parent] && sub[e.Child] {
			edges = append(edges, e)
		}
	}
	// a subset of a DAG's edges cannot introduce a cycle or a dangling edge
	s, err := New(nodes, edges)
	if err != nil {
		panic(err)
	}
	return s
}
