// Package ontology defines how codelists query a coding system release.
//
// Every query names an explicit, immutable release identifier so that a
// codelist version built last year resolves against the same hierarchy today.
package ontology

import "context"

// Relationship is a single is-a edge, directed parent -> child.
type Relationship struct {
	Parent string `json:"parent" toml:"parent"`
	Child  string `json:"child" toml:"child"`
}

// Adapter answers hierarchy questions for one coding system.
type Adapter interface {
	// KnownCodes returns the subset of codes present in the release.
	KnownCodes(ctx context.Context, release string, codes []string) ([]string, error)

	// AncestorRelationships returns every edge on a path from a root of the
	// ontology down to any of codes.
	AncestorRelationships(ctx context.Context, release string, codes []string) ([]Relationship, error)

	// DescendantRelationships returns every edge below any of codes.
	DescendantRelationships(ctx context.Context, release string, codes []string) ([]Relationship, error)

	// CodeToTerm maps codes to their preferred terms. Unknown codes are omitted.
	CodeToTerm(ctx context.Context, release string, codes []string) (map[string]string, error)
}

// Search is a stored query a codelist was built from. Exactly one of Term
// or Code is set. A search matches concepts and all of their descendants.
type Search struct {
	Term string `json:"term,omitempty" yaml:"term,omitempty" toml:"term,omitempty"`
	Code string `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty"`
}

// String renders the search the way curators type it.
func (s Search) String() string {
	if s.Code != "" {
		return "code:" + s.Code
	}
	return s.Term
}

// Evaluator re-runs stored searches against a release.
type Evaluator interface {
	Evaluate(ctx context.Context, release string, search Search) ([]string, error)
}
