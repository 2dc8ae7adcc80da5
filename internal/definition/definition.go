// Package definition holds the compact, durable form of a codelist: the
// explicit include and exclude decisions from which every other status is
// derived.
package definition

import (
	"sort"

	cerrors "codelists/internal/errors"
	"codelists/internal/graph"
	"codelists/internal/status"
)

// Definition is an immutable pair of disjoint explicit code sets.
type Definition struct {
	included []string
	excluded []string
}

// Rule is one explicit decision.
type Rule struct {
	Code   string        `json:"code" yaml:"code"`
	Status status.Status `json:"status" yaml:"status"`
}

// Lists is the serialized shape of a Definition.
type Lists struct {
	Included []string `json:"included" yaml:"included"`
	Excluded []string `json:"excluded" yaml:"excluded"`
}

// New builds a Definition. Duplicates are collapsed; a code in both sets is
// rejected with INVALID_DEFINITION.
func New(included, excluded []string) (Definition, error) {
	inc := sortedUnique(included)
	exc := sortedUnique(excluded)

	var overlap []string
	i, j := 0, 0
	for i < len(inc) && j < len(exc) {
		switch {
		case inc[i] == exc[j]:
			overlap = append(overlap, inc[i])
			i++
			j++
		case inc[i] < exc[j]:
			i++
		default:
			j++
		}
	}
	if len(overlap) > 0 {
		return Definition{}, cerrors.Newf(cerrors.InvalidDefinition,
			"%d code(s) are both included and excluded", len(overlap)).
			WithDetails(map[string]interface{}{"codes": overlap})
	}

	return Definition{included: inc, excluded: exc}, nil
}

// FromCodes compresses a flat set of codes into the explicit decisions that
// reproduce it over g. The graph is walked parents first: a code is
// explicitly included only when it would not already inherit inclusion, and
// explicitly excluded only when it would otherwise inherit inclusion. Codes
// outside g are ignored.
func FromCodes(codes []string, g *graph.Graph) Definition {
	target := status.NewSet(codes...)
	w := status.NewWalker(g, status.NewSet(), status.NewSet())

	for _, code := range g.TopologicalOrder() {
		inherited := w.Inherit(code)
		wanted := target.Has(code)
		switch {
		case wanted && inherited != status.IncludedInherited:
			w.Include(code)
		case !wanted && inherited == status.IncludedInherited:
			w.Exclude(code)
		}
	}

	inc, exc := w.Decisions()
	return Definition{included: inc, excluded: exc}
}

// CodeToStatus resolves every node of g.
func (d Definition) CodeToStatus(g *graph.Graph) map[string]status.Status {
	return status.ResolveAll(g, status.NewSet(d.included...), status.NewSet(d.excluded...))
}

// Codes returns the sorted nodes of g that resolve to an included status.
func (d Definition) Codes(g *graph.Graph) []string {
	return status.CodesWith(d.CodeToStatus(g), status.Status.IsIncluded)
}

// Included returns the explicitly included codes, sorted.
func (d Definition) Included() []string {
	return append([]string(nil), d.included...)
}

// Excluded returns the explicitly excluded codes, sorted.
func (d Definition) Excluded() []string {
	return append([]string(nil), d.excluded...)
}

// Len is the number of explicit decisions.
func (d Definition) Len() int {
	return len(d.included) + len(d.excluded)
}

// IsEmpty reports whether the Definition has no decisions.
func (d Definition) IsEmpty() bool {
	return d.Len() == 0
}

// Equal reports whether both Definitions hold the same decisions.
func (d Definition) Equal(other Definition) bool {
	return equalStrings(d.included, other.included) && equalStrings(d.excluded, other.excluded)
}

// Rules lists every decision ordered by code.
func (d Definition) Rules() []Rule {
	rules := make([]Rule, 0, d.Len())
	for _, c := range d.included {
		rules = append(rules, Rule{Code: c, Status: status.Included})
	}
	for _, c := range d.excluded {
		rules = append(rules, Rule{Code: c, Status: status.Excluded})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Code < rules[j].Code })
	return rules
}

// Restrict drops decisions on codes that are not nodes of g.
func (d Definition) Restrict(g *graph.Graph) Definition {
	return Definition{
		included: keep(d.included, g.Contains),
		excluded: keep(d.excluded, g.Contains),
	}
}

// Missing returns the decided codes that are not nodes of g.
func (d Definition) Missing(g *graph.Graph) []string {
	notIn := func(c string) bool { return !g.Contains(c) }
	return sortedUnique(append(keep(d.included, notIn), keep(d.excluded, notIn)...))
}

// Lists returns the serializable form.
func (d Definition) Lists() Lists {
	return Lists{Included: nonNil(d.Included()), Excluded: nonNil(d.Excluded())}
}

func keep(codes []string, pred func(string) bool) []string {
	var out []string
	for _, c := range codes {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

func sortedUnique(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := append([]string(nil), codes...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}
