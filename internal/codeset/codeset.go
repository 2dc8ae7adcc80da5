// Package codeset is the editable, fully expanded view of a codelist: every
// node of a concept graph paired with its resolved status.
package codeset

import (
	"fmt"
	"sort"

	"codelists/internal/definition"
	cerrors "codelists/internal/errors"
	"codelists/internal/graph"
	"codelists/internal/status"
)

// Override sets the explicit decision on one code. Undecided clears it.
type Override struct {
	Code   string        `json:"code" yaml:"code"`
	Status status.Status `json:"status" yaml:"status"`
}

// Change records a status that moved during an update.
type Change struct {
	Code string        `json:"code" yaml:"code"`
	Old  status.Status `json:"old" yaml:"old"`
	New  status.Status `json:"new" yaml:"new"`
}

// Codeset pairs a graph with the status of each of its nodes. It is not safe
// for concurrent updates; the graph itself is shared read-only.
type Codeset struct {
	g        *graph.Graph
	included status.Set
	excluded status.Set
	statuses map[string]status.Status
}

// New expands def over g. Every decided code must be a node of g.
func New(def definition.Definition, g *graph.Graph) (*Codeset, error) {
	if missing := def.Missing(g); len(missing) > 0 {
		return nil, cerrors.Newf(cerrors.UnknownNode,
			"%d decided code(s) are not in the graph", len(missing)).
			WithDetails(map[string]interface{}{"codes": missing})
	}
	return build(g, status.NewSet(def.Included()...), status.NewSet(def.Excluded()...)), nil
}

// FromStatuses restores a Codeset from a stored status map, such as one row
// per code. The map must cover exactly the nodes of g. Only the explicit
// entries are trusted; inherited tags are resolved again.
func FromStatuses(g *graph.Graph, statuses map[string]status.Status) (*Codeset, error) {
	var unknown, absent []string
	for code := range statuses {
		if !g.Contains(code) {
			unknown = append(unknown, code)
		}
	}
	for _, code := range g.Nodes() {
		if _, ok := statuses[code]; !ok {
			absent = append(absent, code)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, cerrors.Newf(cerrors.UnknownNode,
			"status map has %d code(s) outside the graph", len(unknown)).
			WithDetails(map[string]interface{}{"codes": unknown})
	}
	if len(absent) > 0 {
		return nil, cerrors.Newf(cerrors.IncompleteStatuses,
			"status map is missing %d graph node(s)", len(absent)).
			WithDetails(map[string]interface{}{"codes": absent})
	}

	included, excluded := status.NewSet(), status.NewSet()
	for code, s := range statuses {
		switch s {
		case status.Included:
			included[code] = struct{}{}
		case status.Excluded:
			excluded[code] = struct{}{}
		case status.IncludedInherited, status.ExcludedInherited, status.Undecided, status.Conflict:
		default:
			return nil, cerrors.Newf(cerrors.InvalidDefinition, "invalid status %q for %s", s, code)
		}
	}
	return build(g, included, excluded), nil
}

func build(g *graph.Graph, included, excluded status.Set) *Codeset {
	return &Codeset{
		g:        g,
		included: included,
		excluded: excluded,
		statuses: status.ResolveAll(g, included, excluded),
	}
}

// Graph returns the underlying graph.
func (c *Codeset) Graph() *graph.Graph {
	return c.g
}

// Codes returns the sorted codes currently included.
func (c *Codeset) Codes() []string {
	return status.CodesWith(c.statuses, status.Status.IsIncluded)
}

// Unresolved returns the sorted codes that are undecided or in conflict.
func (c *Codeset) Unresolved() []string {
	return status.CodesWith(c.statuses, status.Status.IsUnresolved)
}

// Status returns the status of code and whether it is a node.
func (c *Codeset) Status(code string) (status.Status, bool) {
	s, ok := c.statuses[code]
	return s, ok
}

// Statuses returns a copy of the full status map.
func (c *Codeset) Statuses() map[string]status.Status {
	out := make(map[string]status.Status, len(c.statuses))
	for code, s := range c.statuses {
		out[code] = s
	}
	return out
}

// Definition returns the current explicit decisions as they stand.
func (c *Codeset) Definition() definition.Definition {
	// included and excluded are kept disjoint by Update
	d, _ := definition.New(c.included.Sorted(), c.excluded.Sorted())
	return d
}

// Compress returns the minimal Definition for the included codes. It can
// differ from Definition when the curator has recorded redundant decisions.
func (c *Codeset) Compress() definition.Definition {
	return definition.FromCodes(c.Codes(), c.g)
}

// Update applies a batch of overrides and re-resolves the graph. The batch
// is validated as a whole first: on error the Codeset is unchanged.
// Applying the same batch twice is a no-op the second time.
func (c *Codeset) Update(overrides []Override) ([]Change, error) {
	if err := c.validate(overrides); err != nil {
		return nil, err
	}

	included := status.NewSet(c.included.Sorted()...)
	excluded := status.NewSet(c.excluded.Sorted()...)
	for _, o := range overrides {
		delete(included, o.Code)
		delete(excluded, o.Code)
		switch o.Status {
		case status.Included:
			included[o.Code] = struct{}{}
		case status.Excluded:
			excluded[o.Code] = struct{}{}
		}
	}

	statuses := status.ResolveAll(c.g, included, excluded)
	var changes []Change
	for code, s := range statuses {
		if old := c.statuses[code]; old != s {
			changes = append(changes, Change{Code: code, Old: old, New: s})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Code < changes[j].Code })

	c.included, c.excluded, c.statuses = included, excluded, statuses
	return changes, nil
}

func (c *Codeset) validate(overrides []Override) error {
	seen := make(map[string]status.Status, len(overrides))
	for _, o := range overrides {
		if !c.g.Contains(o.Code) {
			return cerrors.Newf(cerrors.UnknownNode, "code %s is not in the graph", o.Code).
				WithDetails(map[string]interface{}{"code": o.Code})
		}
		switch o.Status {
		case status.Included, status.Excluded, status.Undecided:
		default:
			return cerrors.New(cerrors.InvalidDefinition,
				fmt.Sprintf("override for %s must be +, - or ?, got %q", o.Code, o.Status))
		}
		if prev, ok := seen[o.Code]; ok && prev != o.Status {
			return cerrors.Newf(cerrors.InvalidDefinition,
				"conflicting overrides for %s: %s and %s", o.Code, prev, o.Status)
		}
		seen[o.Code] = o.Status
	}
	return nil
}
