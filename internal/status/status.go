// Package status resolves the inclusion status of every code in a concept
// graph from a codelist's explicit include and exclude decisions.
package status

import (
	"fmt"
	"sort"
)

// Status is one of six mutually exclusive tags. The string value is the
// symbol curators see.
type Status string

const (
	// Included is an explicit include decision
	Included Status = "+"
	// IncludedInherited is included through an included ancestor
	IncludedInherited Status = "(+)"
	// Excluded is an explicit exclude decision
	Excluded Status = "-"
	// ExcludedInherited is excluded through an excluded ancestor
	ExcludedInherited Status = "(-)"
	// Undecided has no explicit decision on itself or any ancestor
	Undecided Status = "?"
	// Conflict inherits both an include and an exclude
	Conflict Status = "!"
)

var all = []Status{Included, IncludedInherited, Excluded, ExcludedInherited, Undecided, Conflict}

// Parse converts a symbol back into a Status.
func Parse(s string) (Status, error) {
	for _, st := range all {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsIncluded reports whether codes with this status belong to the codelist.
func (s Status) IsIncluded() bool {
	return s == Included || s == IncludedInherited
}

// IsExplicit reports whether the status records a decision on the code itself.
func (s Status) IsExplicit() bool {
	return s == Included || s == Excluded
}

// IsUnresolved reports whether a curator still has to act on the code.
func (s Status) IsUnresolved() bool {
	return s == Undecided || s == Conflict
}

// Name is a human-readable label.
func (s Status) Name() string {
	switch s {
	case Included:
		return "included"
	case IncludedInherited:
		return "included (inherited)"
	case Excluded:
		return "excluded"
	case ExcludedInherited:
		return "excluded (inherited)"
	case Undecided:
		return "undecided"
	case Conflict:
		return "conflict"
	default:
		return "invalid"
	}
}

// Counts tallies statuses, keyed by symbol.
func Counts(statuses map[string]Status) map[Status]int {
	counts := make(map[Status]int, len(all))
	for _, s := range statuses {
		counts[s]++
	}
	return counts
}

// CodesWith returns the sorted codes whose status satisfies keep.
func CodesWith(statuses map[string]Status, keep func(Status) bool) []string {
	var out []string
	for code, s := range statuses {
		if keep(s) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
