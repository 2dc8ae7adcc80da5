package main

import (
	"codelists/internal/codelist"
	"codelists/internal/codeset"
	"codelists/internal/graph"
	"codelists/internal/ontology"
	"codelists/internal/status"
	"codelists/internal/storage"
)

// statusOrder is the display order of status summaries
var statusOrder = []status.Status{
	status.Included, status.IncludedInherited,
	status.Excluded, status.ExcludedInherited,
	status.Undecided, status.Conflict,
}

// DraftResponseCLI is a version with every code and its status
type DraftResponseCLI struct {
	Version  *storage.Version      `json:"version" yaml:"version"`
	Searches []ontology.Search     `json:"searches" yaml:"searches"`
	Codes    []CodeRowCLI          `json:"codes" yaml:"codes"`
	// Branches are the topmost included codes; every other included code
	// lies below one of them
	Branches []string              `json:"branches" yaml:"branches"`
	// Roots are the top-level concepts of the draft's hierarchy
	Roots    []string              `json:"roots" yaml:"roots"`
	Summary  map[status.Status]int `json:"summary" yaml:"summary"`
	Changes  []codeset.Change      `json:"changes,omitempty" yaml:"changes,omitempty"`
	Dropped  []string              `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// CodeRowCLI is one code of a draft
type CodeRowCLI struct {
	Code   string        `json:"code" yaml:"code"`
	Status status.Status `json:"status" yaml:"status"`
	Term   string        `json:"term,omitempty" yaml:"term,omitempty"`
	Depth  int           `json:"depth" yaml:"depth"`
}

// ReleasesResponseCLI lists imported releases
type ReleasesResponseCLI struct {
	Releases []storage.ReleaseInfo `json:"releases" yaml:"releases"`
}

// VersionsResponseCLI lists the versions of one codelist
type VersionsResponseCLI struct {
	CodelistID string                   `json:"codelistId" yaml:"codelistId"`
	Versions   []*storage.Version       `json:"versions" yaml:"versions"`
	// Cache covers the graph cache of the whole workspace
	Cache      *storage.GraphCacheStats `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// convertDraft builds the CLI view of a draft. With unresolvedOnly set only
// undecided and conflicting codes are listed.
func convertDraft(d *codelist.Draft, terms map[string]string, unresolvedOnly bool) *DraftResponseCLI {
	g := d.Codeset.Graph()
	depths := codeDepths(g)

	resp := &DraftResponseCLI{
		Version:  d.Version,
		Searches: d.Searches,
		Summary:  d.Summary(),
		Dropped:  d.Dropped,
		Branches: g.FilterToUltimateAncestors(d.Codeset.Codes()),
		Roots:    g.Roots(),
	}
	for _, code := range g.TopologicalOrder() {
		s, _ := d.Codeset.Status(code)
		if unresolvedOnly && !s.IsUnresolved() {
			continue
		}
		resp.Codes = append(resp.Codes, CodeRowCLI{Code: code, Status: s, Term: terms[code], Depth: depths[code]})
	}
	return resp
}

// codeDepths is the longest path from a root to each code
func codeDepths(g *graph.Graph) map[string]int {
	depths := make(map[string]int, g.Len())
	for _, code := range g.TopologicalOrder() {
		for _, p := range g.Parents(code) {
			if depths[p]+1 > depths[code] {
				depths[code] = depths[p] + 1
			}
		}
	}
	return depths
}
