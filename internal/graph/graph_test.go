package graph

import (
	"context"
	"reflect"
	"sync"
	"testing"

	cerrors "codelists/internal/errors"
	"codelists/internal/ontology"
)

// diamond builds:
//
//	  A
//	 / \
//	B   C
//	 \ / \
//	  D   E
func diamond(t *testing.T) *Graph {
	t.Helper()
	g, err := New(
		[]string{"D", "A", "C", "B", "E", "A"},
		[]Edge{
			{Parent: "A", Child: "B"},
			{Parent: "A", Child: "C"},
			{Parent: "B", Child: "D"},
			{Parent: "C", Child: "D"},
			{Parent: "C", Child: "E"},
			{Parent: "C", Child: "E"},
		},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestNewDeduplicatesAndSorts(t *testing.T) {
	g := diamond(t)

	if got, want := g.Nodes(), []string{"A", "B", "C", "D", "E"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if g.Len() != 5 {
		t.Errorf("Len() = %d, want 5", g.Len())
	}
	if g.NumEdges() != 5 {
		t.Errorf("NumEdges() = %d, want 5 (duplicate edge collapsed)", g.NumEdges())
	}
	if got, want := g.Roots(), []string{"A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Roots() = %v, want %v", got, want)
	}
	if got, want := g.Parents("D"), []string{"B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Parents(D) = %v, want %v", got, want)
	}
	if got, want := g.Children("C"), []string{"D", "E"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Children(C) = %v, want %v", got, want)
	}
	if g.Parents("Z") != nil || g.Children("Z") != nil {
		t.Error("unknown code should have no parents or children")
	}
}

func TestNewRejectsInvalidEdges(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges []Edge
		code  cerrors.ErrorCode
	}{
		{
			name:  "cycle",
			nodes: []string{"A", "B", "C"},
			edges: []Edge{{"A", "B"}, {"B", "C"}, {"C", "A"}},
			code:  cerrors.CycleDetected,
		},
		{
			name:  "self edge",
			nodes: []string{"A"},
			edges: []Edge{{"A", "A"}},
			code:  cerrors.CycleDetected,
		},
		{
			name:  "parent outside node set",
			nodes: []string{"B"},
			edges: []Edge{{"A", "B"}},
			code:  cerrors.UnknownNode,
		},
		{
			name:  "child outside node set",
			nodes: []string{"A"},
			edges: []Edge{{"A", "B"}},
			code:  cerrors.UnknownNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nodes, tt.edges)
			if !cerrors.IsCode(err, tt.code) {
				t.Errorf("New() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestTopologicalOrder(t *testing.T) {
	g := diamond(t)
	order := g.TopologicalOrder()
	if len(order) != g.Len() {
		t.Fatalf("order has %d codes, want %d", len(order), g.Len())
	}

	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	for _, e := range g.Edges() {
		if pos[e.Parent] >= pos[e.Child] {
			t.Errorf("parent %s appears after child %s in %v", e.Parent, e.Child, order)
		}
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	g := diamond(t)

	tests := []struct {
		code        string
		ancestors   []string
		descendants []string
	}{
		{"A", []string{}, []string{"B", "C", "D", "E"}},
		{"B", []string{"A"}, []string{"D"}},
		{"C", []string{"A"}, []string{"D", "E"}},
		{"D", []string{"A", "B", "C"}, []string{}},
		{"E", []string{"A", "C"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := g.Ancestors(tt.code); !reflect.DeepEqual(got, tt.ancestors) {
				t.Errorf("Ancestors(%s) = %v, want %v", tt.code, got, tt.ancestors)
			}
			if got := g.Descendants(tt.code); !reflect.DeepEqual(got, tt.descendants) {
				t.Errorf("Descendants(%s) = %v, want %v", tt.code, got, tt.descendants)
			}
		})
	}

	if g.Ancestors("Z") != nil {
		t.Error("Ancestors of unknown code should be nil")
	}
	if !g.IsAncestor("A", "D") || g.IsAncestor("D", "A") || g.IsAncestor("B", "E") || g.IsAncestor("A", "A") {
		t.Error("IsAncestor gave a wrong answer on the diamond")
	}
}

func TestFilterToUltimate(t *testing.T) {
	g := diamond(t)

	tests := []struct {
		name        string
		codes       []string
		ancestors   []string
		descendants []string
	}{
		{"chain", []string{"A", "B", "D"}, []string{"A"}, []string{"D"}},
		{"siblings", []string{"B", "C"}, []string{"B", "C"}, []string{"B", "C"}},
		{"diamond bottom", []string{"B", "C", "D", "E"}, []string{"B", "C"}, []string{"D", "E"}},
		{"duplicates", []string{"E", "E", "C"}, []string{"C"}, []string{"E"}},
		{"unknown kept", []string{"Z", "D"}, []string{"D", "Z"}, []string{"D", "Z"}},
		{"empty", nil, []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.FilterToUltimateAncestors(tt.codes); !reflect.DeepEqual(got, tt.ancestors) {
				t.Errorf("FilterToUltimateAncestors(%v) = %v, want %v", tt.codes, got, tt.ancestors)
			}
			if got := g.FilterToUltimateDescendants(tt.codes); !reflect.DeepEqual(got, tt.descendants) {
				t.Errorf("FilterToUltimateDescendants(%v) = %v, want %v", tt.codes, got, tt.descendants)
			}
		})
	}
}

func TestFilterToUltimateAncestorsHasNoRelatedPairs(t *testing.T) {
	g := diamond(t)
	all := g.Nodes()

	// every subset of the five nodes
	for mask := 0; mask < 1<<len(all); mask++ {
		var subset []string
		for i, c := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, c)
			}
		}
		got := g.FilterToUltimateAncestors(subset)
		for _, a := range got {
			for _, b := range got {
				if g.IsAncestor(a, b) {
					t.Fatalf("FilterToUltimateAncestors(%v) = %v keeps %s above %s", subset, got, a, b)
				}
			}
		}
	}
}

func TestConcurrentClosureQueries(t *testing.T) {
	g := diamond(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := g.Ancestors("D"); len(got) != 3 {
				t.Errorf("Ancestors(D) = %v", got)
			}
			if got := g.Descendants("A"); len(got) != 4 {
				t.Errorf("Descendants(A) = %v", got)
			}
		}()
	}
	wg.Wait()
}

func TestWideDAG(t *testing.T) {
	// Layers of 30 nodes, each node a child of every node in the layer above.
	// Naive per-path walks are exponential here.
	const layers, width = 12, 30
	var nodes []string
	var edges []Edge
	name := func(l, i int) string { return string(rune('a'+l)) + string(rune('A'+i)) }
	for l := 0; l < layers; l++ {
		for i := 0; i < width; i++ {
			nodes = append(nodes, name(l, i))
			if l == 0 {
				continue
			}
			for j := 0; j < width; j++ {
				edges = append(edges, Edge{Parent: name(l-1, j), Child: name(l, i)})
			}
		}
	}

	g, err := New(nodes, edges)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := len(g.Ancestors(name(layers-1, 0))); got != (layers-1)*width {
		t.Errorf("bottom node has %d ancestors, want %d", got, (layers-1)*width)
	}
	if got := len(g.Descendants(name(0, 0))); got != (layers-1)*width {
		t.Errorf("top node has %d descendants, want %d", got, (layers-1)*width)
	}
}

func TestClosureAndSubgraph(t *testing.T) {
	g := diamond(t)

	// B's closure skips C and E: C is D's other parent, not B's relative
	closure := g.Closure([]string{"B", "Z"})
	if want := []string{"A", "B", "D"}; !reflect.DeepEqual(closure, want) {
		t.Fatalf("Closure(B) = %v, want %v", closure, want)
	}

	sub := g.Subgraph(closure)
	if !reflect.DeepEqual(sub.Nodes(), closure) {
		t.Errorf("Subgraph nodes = %v", sub.Nodes())
	}
	want := []Edge{{Parent: "A", Child: "B"}, {Parent: "B", Child: "D"}}
	if !reflect.DeepEqual(sub.Edges(), want) {
		t.Errorf("Subgraph edges = %v, want %v", sub.Edges(), want)
	}
	if got := g.Closure(nil); len(got) != 0 {
		t.Errorf("Closure(nil) = %v", got)
	}
}

// crossRelease has an edge from an ancestor of one seed (Q) to a descendant
// of another seed (D):
//
//	    R
//	   / \
//	  Q   S1
//	 / \  |
//	S2   \ |
//	      D
const crossRelease = `
id = "cross"
coding_system = "snomedct"

[[concepts]]
code = "R"

[[concepts]]
code = "Q"
parents = ["R"]

[[concepts]]
code = "S1"
parents = ["R"]

[[concepts]]
code = "S2"
parents = ["Q"]

[[concepts]]
code = "D"
parents = ["S1", "Q"]

[[concepts]]
code = "X"
parents = ["D"]
`

func TestFromCodesKeepsEdgesBetweenClosureNodes(t *testing.T) {
	r, err := ontology.DecodeRelease(crossRelease)
	if err != nil {
		t.Fatalf("DecodeRelease failed: %v", err)
	}
	adapter := ontology.NewMemory(r)
	ctx := context.Background()

	g, report, err := FromCodes(ctx, adapter, "cross", []string{"S1", "S2"}, BuildOptions{})
	if err != nil {
		t.Fatalf("FromCodes failed: %v", err)
	}
	if got, want := g.Parents("D"), []string{"Q", "S1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Parents(D) = %v, want %v", got, want)
	}
	if got, want := g.Ancestors("X"), []string{"D", "Q", "R", "S1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Ancestors(X) = %v, want %v", got, want)
	}
	if report.TotalNodes != 6 || report.TotalEdges != 6 {
		t.Errorf("unexpected report %+v", report)
	}

	// seeding with every node must give the same graph
	all, _, err := FromCodes(ctx, adapter, "cross", g.Nodes(), BuildOptions{})
	if err != nil {
		t.Fatalf("FromCodes over all nodes failed: %v", err)
	}
	if !reflect.DeepEqual(all.Edges(), g.Edges()) {
		t.Errorf("edges differ:\n seeds: %v\n  all: %v", g.Edges(), all.Edges())
	}
}
