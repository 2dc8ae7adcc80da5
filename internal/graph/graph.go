// Package graph provides the concept hierarchy a codelist is resolved against.
//
// A Graph is a DAG over a closed set of codes, stored as a dense array of
// codes with integer indices and index-based parent/child adjacency lists.
// It is immutable after construction; ancestor and descendant closures are
// computed once, on first use, and may be read from many goroutines.
package graph

import (
	"container/heap"
	"sort"
	"sync"

	cerrors "codelists/internal/errors"
)

// Edge represents a directed is-a edge in the concept hierarchy.
type Edge struct {
	Parent string
	Child  string
}

// Graph is an immutable concept hierarchy.
type Graph struct {
	// Node codes (for index lookup), sorted
	nodes   []string
	nodeIdx map[string]int

	// Adjacency lists: parents[i] / children[i] hold node indices, sorted
	parents  [][]int
	children [][]int

	// Topological order, parents before children
	order []int

	ancestorsOnce   sync.Once
	ancestors       []indexSet
	descendantsOnce sync.Once
	descendants     []indexSet
}

type indexSet map[int]struct{}

// New builds a graph from a node set and edges between those nodes.
// Duplicate nodes and edges are collapsed. Edges that reference a code
// outside nodes, self-edges, and cycles are rejected.
func New(nodes []string, edges []Edge) (*Graph, error) {
	g := &Graph{nodeIdx: make(map[string]int, len(nodes))}

	sorted := make([]string, len(nodes))
	copy(sorted, nodes)
	sort.Strings(sorted)
	for _, code := range sorted {
		if _, ok := g.nodeIdx[code]; ok {
			continue
		}
		g.nodeIdx[code] = len(g.nodes)
		g.nodes = append(g.nodes, code)
	}
	g.parents = make([][]int, len(g.nodes))
	g.children = make([][]int, len(g.nodes))

	seen := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		p, ok := g.nodeIdx[e.Parent]
		if !ok {
			return nil, cerrors.Newf(cerrors.UnknownNode, "edge %s -> %s: parent is not a node", e.Parent, e.Child)
		}
		c, ok := g.nodeIdx[e.Child]
		if !ok {
			return nil, cerrors.Newf(cerrors.UnknownNode, "edge %s -> %s: child is not a node", e.Parent, e.Child)
		}
		if p == c {
			return nil, cerrors.Newf(cerrors.CycleDetected, "self-referential edge on %s", e.Parent)
		}
		key := [2]int{p, c}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.parents[c] = append(g.parents[c], p)
		g.children[p] = append(g.children[p], c)
	}
	for i := range g.nodes {
		sort.Ints(g.parents[i])
		sort.Ints(g.children[i])
	}

	if err := g.sortTopologically(); err != nil {
		return nil, err
	}
	return g, nil
}

// sortTopologically fills g.order using Kahn's algorithm. Ties are broken by
// node index, so the order is deterministic for a given node and edge set.
func (g *Graph) sortTopologically() error {
	inDegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		inDegree[i] = len(g.parents[i])
	}

	ready := &minHeap{}
	for i, d := range inDegree {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	g.order = make([]int, 0, len(g.nodes))
	for ready.Len() > 0 {
		next := heap.Pop(ready).(int)
		g.order = append(g.order, next)
		for _, c := range g.children[next] {
			inDegree[c]--
			if inDegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}

	if len(g.order) != len(g.nodes) {
		for i, d := range inDegree {
			if d > 0 {
				return cerrors.Newf(cerrors.CycleDetected, "cycle detected involving node %s", g.nodes[i])
			}
		}
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NumEdges returns the total number of edges.
func (g *Graph) NumEdges() int {
	total := 0
	for _, cs := range g.children {
		total += len(cs)
	}
	return total
}

// Nodes returns all codes in the graph in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Contains reports whether code is a node of the graph.
func (g *Graph) Contains(code string) bool {
	_, ok := g.nodeIdx[code]
	return ok
}

// Parents returns the direct parents of code within the graph.
func (g *Graph) Parents(code string) []string {
	idx, ok := g.nodeIdx[code]
	if !ok {
		return nil
	}
	return g.codes(g.parents[idx])
}

// Children returns the direct children of code within the graph.
func (g *Graph) Children(code string) []string {
	idx, ok := g.nodeIdx[code]
	if !ok {
		return nil
	}
	return g.codes(g.children[idx])
}

// Roots returns the nodes with no parent inside the graph.
func (g *Graph) Roots() []string {
	var roots []string
	for i, code := range g.nodes {
		if len(g.parents[i]) == 0 {
			roots = append(roots, code)
		}
	}
	return roots
}

// TopologicalOrder returns every code, parents before children.
func (g *Graph) TopologicalOrder() []string {
	return g.codes(g.order)
}

// Edges returns every edge, ordered by parent then child.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.NumEdges())
	for p, cs := range g.children {
		for _, c := range cs {
			edges = append(edges, Edge{Parent: g.nodes[p], Child: g.nodes[c]})
		}
	}
	return edges
}

func (g *Graph) codes(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = g.nodes[idx]
	}
	return out
}

type minHeap []int

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
