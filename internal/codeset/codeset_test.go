package codeset

import (
	"reflect"
	"testing"

	"codelists/internal/definition"
	cerrors "codelists/internal/errors"
	"codelists/internal/status"
	"codelists/internal/testutil"
)

func elbowCodeset(t *testing.T) *Codeset {
	t.Helper()
	d, err := definition.New([]string{"128133004", "156659008"}, []string{"439656005"})
	if err != nil {
		t.Fatalf("definition.New failed: %v", err)
	}
	cs, err := New(d, testutil.ElbowGraph(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return cs
}

func TestNewExpandsDefinition(t *testing.T) {
	cs := elbowCodeset(t)
	testutil.CompareGolden(t, "elbow_statuses", cs.Statuses())

	if s, ok := cs.Status("202855006"); !ok || s != status.ExcludedInherited {
		t.Errorf("Status(202855006) = %s, %v", s, ok)
	}
	if _, ok := cs.Status("00000000"); ok {
		t.Error("Status should report codes outside the graph")
	}
	if got := cs.Unresolved(); len(got) != 0 {
		t.Errorf("Unresolved() = %v, want none", got)
	}
}

func TestNewRejectsCodesOutsideGraph(t *testing.T) {
	g := testutil.Graph(t, testutil.ElbowV1, "35185008")
	d, _ := definition.New([]string{"156659008"}, nil)
	if _, err := New(d, g); !cerrors.IsCode(err, cerrors.UnknownNode) {
		t.Errorf("New() error = %v, want UNKNOWN_NODE", err)
	}
}

func TestFromStatuses(t *testing.T) {
	g := testutil.ElbowGraph(t)
	stored := elbowCodeset(t).Statuses()

	cs, err := FromStatuses(g, stored)
	if err != nil {
		t.Fatalf("FromStatuses failed: %v", err)
	}
	if !reflect.DeepEqual(cs.Statuses(), stored) {
		t.Errorf("FromStatuses changed statuses: %v", cs.Statuses())
	}

	// a stale inherited tag is re-resolved from the explicit entries
	stale := elbowCodeset(t).Statuses()
	stale["73583000"] = status.Undecided
	cs, err = FromStatuses(g, stale)
	if err != nil {
		t.Fatalf("FromStatuses failed: %v", err)
	}
	if s, _ := cs.Status("73583000"); s != status.IncludedInherited {
		t.Errorf("Status(73583000) = %s, want (+)", s)
	}

	tests := []struct {
		name   string
		mutate func(map[string]status.Status)
		code   cerrors.ErrorCode
	}{
		{"missing node", func(m map[string]status.Status) { delete(m, "35185008") }, cerrors.IncompleteStatuses},
		{"extra code", func(m map[string]status.Status) { m["99999999"] = status.Undecided }, cerrors.UnknownNode},
		{"bad tag", func(m map[string]status.Status) { m["35185008"] = "x" }, cerrors.InvalidDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := elbowCodeset(t).Statuses()
			tt.mutate(m)
			if _, err := FromStatuses(g, m); !cerrors.IsCode(err, tt.code) {
				t.Errorf("FromStatuses() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	cs := elbowCodeset(t)

	changes, err := cs.Update([]Override{
		{Code: "35185008", Status: status.Excluded},
		{Code: "202855006", Status: status.Included},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	want := []Change{
		{Code: "202855006", Old: status.ExcludedInherited, New: status.Included},
		{Code: "35185008", Old: status.IncludedInherited, New: status.Excluded},
		{Code: "73583000", Old: status.IncludedInherited, New: status.ExcludedInherited},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("Update() changes = %v, want %v", changes, want)
	}

	d := cs.Definition()
	if !reflect.DeepEqual(d.Included(), []string{"128133004", "156659008", "202855006"}) {
		t.Errorf("Definition().Included() = %v", d.Included())
	}
	if !reflect.DeepEqual(d.Excluded(), []string{"35185008", "439656005"}) {
		t.Errorf("Definition().Excluded() = %v", d.Excluded())
	}

	// clearing decisions
	if _, err := cs.Update([]Override{{Code: "128133004", Status: status.Undecided}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if s, _ := cs.Status("429554009"); s != status.Undecided {
		t.Errorf("Status(429554009) = %s, want ?", s)
	}
	if got := cs.Unresolved(); !reflect.DeepEqual(got, []string{"128133004", "239964003", "429554009"}) {
		t.Errorf("Unresolved() = %v", got)
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	batch := []Override{
		{Code: "73583000", Status: status.Excluded},
		{Code: "439656005", Status: status.Undecided},
		{Code: "239964003", Status: status.Included},
		{Code: "239964003", Status: status.Included},
	}

	cs := elbowCodeset(t)
	if _, err := cs.Update(batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	once := cs.Statuses()

	changes, err := cs.Update(batch)
	if err != nil {
		t.Fatalf("second Update failed: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("second Update changed %v", changes)
	}
	if !reflect.DeepEqual(cs.Statuses(), once) {
		t.Error("second Update changed statuses")
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	tests := []struct {
		name  string
		batch []Override
		code  cerrors.ErrorCode
	}{
		{
			name:  "unknown code late in batch",
			batch: []Override{{Code: "35185008", Status: status.Excluded}, {Code: "99999999", Status: status.Included}},
			code:  cerrors.UnknownNode,
		},
		{
			name:  "derived status",
			batch: []Override{{Code: "35185008", Status: status.Excluded}, {Code: "73583000", Status: status.IncludedInherited}},
			code:  cerrors.InvalidDefinition,
		},
		{
			name:  "conflicting duplicates",
			batch: []Override{{Code: "35185008", Status: status.Excluded}, {Code: "35185008", Status: status.Included}},
			code:  cerrors.InvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := elbowCodeset(t)
			before := cs.Statuses()
			beforeDef := cs.Definition()

			if _, err := cs.Update(tt.batch); !cerrors.IsCode(err, tt.code) {
				t.Fatalf("Update() error = %v, want %s", err, tt.code)
			}
			if !reflect.DeepEqual(cs.Statuses(), before) || !cs.Definition().Equal(beforeDef) {
				t.Error("failed Update modified the codeset")
			}
		})
	}
}

func TestCompressDropsRedundantDecisions(t *testing.T) {
	cs := elbowCodeset(t)
	// 35185008 already inherits inclusion from 128133004
	if _, err := cs.Update([]Override{{Code: "35185008", Status: status.Included}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if cs.Definition().Len() != 4 {
		t.Errorf("Definition().Len() = %d, want 4", cs.Definition().Len())
	}

	compressed := cs.Compress()
	want, _ := definition.New([]string{"128133004", "156659008"}, []string{"439656005"})
	if !compressed.Equal(want) {
		t.Errorf("Compress() = %+v", compressed.Lists())
	}
	if !reflect.DeepEqual(compressed.Codes(cs.Graph()), cs.Codes()) {
		t.Error("compressed definition does not reproduce the codeset")
	}
}
