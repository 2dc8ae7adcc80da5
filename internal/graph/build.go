package graph

import (
	"context"
	"sort"

	cerrors "codelists/internal/errors"
	"codelists/internal/ontology"
)

// BuildOptions configures graph construction from an ontology.
type BuildOptions struct {
	// IgnoreUnknown drops seed codes missing from the release and reports
	// them instead of failing.
	IgnoreUnknown bool
}

// BuildReport describes what happened to the seed codes.
type BuildReport struct {
	Seeds        int      `json:"seeds"`
	UnknownCodes []string `json:"unknownCodes,omitempty"`
	TotalNodes   int      `json:"totalNodes"`
	TotalEdges   int      `json:"totalEdges"`
}

// FromCodes queries the adapter for the ancestor and descendant edges of
// codes in release and returns the graph over their closure, with every
// ontology edge between two closure nodes.
func FromCodes(ctx context.Context, adapter ontology.Adapter, release string, codes []string, opts BuildOptions) (*Graph, *BuildReport, error) {
	seeds := dedupe(codes)
	report := &BuildReport{Seeds: len(seeds)}

	known, err := adapter.KnownCodes(ctx, release, seeds)
	if err != nil {
		return nil, nil, err
	}
	if len(known) != len(seeds) {
		knownSet := make(map[string]bool, len(known))
		for _, c := range known {
			knownSet[c] = true
		}
		for _, c := range seeds {
			if !knownSet[c] {
				report.UnknownCodes = append(report.UnknownCodes, c)
			}
		}
		if !opts.IgnoreUnknown {
			return nil, nil, cerrors.Newf(cerrors.UnknownCode,
				"%d code(s) not found in release %s", len(report.UnknownCodes), release).
				WithDetails(report.UnknownCodes)
		}
	}

	up, err := adapter.AncestorRelationships(ctx, release, known)
	if err != nil {
		return nil, nil, err
	}
	down, err := adapter.DescendantRelationships(ctx, release, known)
	if err != nil {
		return nil, nil, err
	}

	inClosure := make(map[string]bool, len(known)+len(up)+len(down))
	for _, c := range known {
		inClosure[c] = true
	}
	for _, rels := range [][]ontology.Relationship{up, down} {
		for _, r := range rels {
			inClosure[r.Parent] = true
			inClosure[r.Child] = true
		}
	}

	// A descendant may have parents that are ancestors of a different seed.
	// Those edges lie inside the closure but neither query above returns them.
	var below []string
	for _, r := range down {
		below = append(below, r.Child)
	}
	var across []ontology.Relationship
	if len(below) > 0 {
		above, err := adapter.AncestorRelationships(ctx, release, dedupe(below))
		if err != nil {
			return nil, nil, err
		}
		for _, r := range above {
			if inClosure[r.Parent] && inClosure[r.Child] {
				across = append(across, r)
			}
		}
	}

	nodes := make([]string, 0, len(inClosure))
	for c := range inClosure {
		nodes = append(nodes, c)
	}
	edges := make([]Edge, 0, len(up)+len(down)+len(across))
	for _, rels := range [][]ontology.Relationship{up, down, across} {
		for _, r := range rels {
			edges = append(edges, Edge{Parent: r.Parent, Child: r.Child})
		}
	}

	g, err := New(nodes, edges)
	if err != nil {
		return nil, nil, err
	}
	report.TotalNodes = g.Len()
	report.TotalEdges = g.NumEdges()
	return g, report, nil
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
