// Package reconcile re-derives a codelist against a newer ontology release
// while keeping the curator's explicit decisions.
//
// The reconciled universe is the closure, in the new release, of the codes
// the stored searches now return plus the explicit decisions that still
// exist. Codes inside it keep or gain a status; codes outside it are removed.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"codelists/internal/codeset"
	"codelists/internal/definition"
	"codelists/internal/graph"
	"codelists/internal/ontology"
	"codelists/internal/status"
)

// Added is a code that enters the codelist.
type Added struct {
	Code   string        `json:"code" yaml:"code"`
	Status status.Status `json:"status" yaml:"status"`
}

// Changed is a code whose status moved.
type Changed struct {
	Code string        `json:"code" yaml:"code"`
	Old  status.Status `json:"old" yaml:"old"`
	New  status.Status `json:"new" yaml:"new"`
}

// Delta classifies every difference between the previous and reconciled
// codelists. Each slice is ordered by code.
type Delta struct {
	Added   []Added   `json:"added" yaml:"added"`
	Removed []string  `json:"removed" yaml:"removed"`
	Changed []Changed `json:"changed" yaml:"changed"`
}

// Empty reports whether nothing changed.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Result is a proposed reconciliation. Nothing is applied until the caller
// calls Apply.
type Result struct {
	Delta Delta `json:"delta" yaml:"delta"`
	// Definition is the previous decisions restricted to the new release
	Definition definition.Definition `json:"-" yaml:"-"`
	// Missing lists fresh search results that are not nodes of the new graph
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Dropped lists explicit decisions on codes the new release no longer has
	Dropped []string `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	// Statuses is the reconciled status of every code in the universe
	Statuses map[string]status.Status `json:"statuses" yaml:"statuses"`

	graph *graph.Graph
}

// Graph is the reconciled concept graph.
func (r *Result) Graph() *graph.Graph {
	return r.graph
}

// Apply builds the reconciled Codeset.
func (r *Result) Apply() (*codeset.Codeset, error) {
	return codeset.New(r.Definition, r.graph)
}

// Input is everything Reconcile needs.
type Input struct {
	// Release is the newer ontology release
	Release  string
	Searches []ontology.Search
	Previous *codeset.Codeset

	Adapter   ontology.Adapter
	Evaluator ontology.Evaluator
}

// Reconcile re-runs the stored searches against in.Release, builds the new
// graph from their results and the previous explicit decisions, and diffs.
func Reconcile(ctx context.Context, in Input) (*Result, error) {
	fresh, err := Evaluate(ctx, in.Evaluator, in.Release, in.Searches)
	if err != nil {
		return nil, err
	}

	prev := in.Previous.Definition()
	seeds := append(append([]string(nil), fresh...), prev.Included()...)
	seeds = append(seeds, prev.Excluded()...)
	g, _, err := graph.FromCodes(ctx, in.Adapter, in.Release, seeds, graph.BuildOptions{IgnoreUnknown: true})
	if err != nil {
		return nil, fmt.Errorf("failed to build graph for release %s: %w", in.Release, err)
	}
	return Diff(in.Previous, fresh, g), nil
}

// Evaluate runs every search and returns the sorted union of their results.
func Evaluate(ctx context.Context, ev ontology.Evaluator, release string, searches []ontology.Search) ([]string, error) {
	union := status.NewSet()
	for _, s := range searches {
		codes, err := ev.Evaluate(ctx, release, s)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate search %q: %w", s.String(), err)
		}
		for _, c := range codes {
			union[c] = struct{}{}
		}
	}
	return union.Sorted(), nil
}

// Diff reconciles previous against a graph built from a newer release.
// fresh is the union of the re-evaluated search results.
func Diff(previous *codeset.Codeset, fresh []string, g *graph.Graph) *Result {
	prev := previous.Definition()
	def := prev.Restrict(g)

	var roots, missing []string
	for _, c := range fresh {
		if g.Contains(c) {
			roots = append(roots, c)
		} else {
			missing = append(missing, c)
		}
	}
	roots = append(roots, def.Included()...)
	roots = append(roots, def.Excluded()...)

	universe := g.Subgraph(g.Closure(roots))
	statuses := def.CodeToStatus(universe)

	old := previous.Statuses()
	var delta Delta
	for code, s := range statuses {
		before, ok := old[code]
		switch {
		case !ok:
			delta.Added = append(delta.Added, Added{Code: code, Status: s})
		case before != s:
			delta.Changed = append(delta.Changed, Changed{Code: code, Old: before, New: s})
		}
	}
	for code := range old {
		if _, ok := statuses[code]; !ok {
			delta.Removed = append(delta.Removed, code)
		}
	}
	sort.Slice(delta.Added, func(i, j int) bool { return delta.Added[i].Code < delta.Added[j].Code })
	sort.Slice(delta.Changed, func(i, j int) bool { return delta.Changed[i].Code < delta.Changed[j].Code })
	sort.Strings(delta.Removed)

	return &Result{
		Delta:      delta,
		Definition: def,
		Missing:    missing,
		Dropped:    prev.Missing(g),
		Statuses:   statuses,
		graph:      universe,
	}
}
