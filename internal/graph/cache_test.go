package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"

	cerrors "codelists/internal/errors"
	"codelists/internal/ontology"
)

func TestCacheRoundTrip(t *testing.T) {
	g := diamond(t)

	c := g.Cache()
	if got, want := c.ParentMap["D"], []string{"B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParentMap[D] = %v, want %v", got, want)
	}
	if _, ok := c.ParentMap["A"]; ok {
		t.Error("root should have no parent_map entry")
	}

	blob, err := EncodeCache(c, zstd.SpeedDefault)
	if err != nil {
		t.Fatalf("EncodeCache failed: %v", err)
	}
	decoded, err := DecodeCache(blob)
	if err != nil {
		t.Fatalf("DecodeCache failed: %v", err)
	}
	restored, err := FromCache(decoded)
	if err != nil {
		t.Fatalf("FromCache failed: %v", err)
	}

	if !reflect.DeepEqual(restored.Nodes(), g.Nodes()) {
		t.Errorf("Nodes differ: %v vs %v", restored.Nodes(), g.Nodes())
	}
	if !reflect.DeepEqual(restored.Edges(), g.Edges()) {
		t.Errorf("Edges differ: %v vs %v", restored.Edges(), g.Edges())
	}
	if !reflect.DeepEqual(restored.Ancestors("D"), g.Ancestors("D")) {
		t.Error("restored graph answers ancestor queries differently")
	}
}

func TestFromCacheRejectsInconsistentMaps(t *testing.T) {
	tests := []struct {
		name  string
		cache Cache
	}{
		{
			name: "child map edge missing from parent map",
			cache: Cache{
				Nodes:     []string{"A", "B"},
				ParentMap: map[string][]string{},
				ChildMap:  map[string][]string{"A": {"B"}},
			},
		},
		{
			name: "parent map edge missing from child map",
			cache: Cache{
				Nodes:     []string{"A", "B"},
				ParentMap: map[string][]string{"B": {"A"}},
				ChildMap:  map[string][]string{},
			},
		},
		{
			name: "edge to unlisted node",
			cache: Cache{
				Nodes:     []string{"B"},
				ParentMap: map[string][]string{"B": {"A"}},
				ChildMap:  map[string][]string{"A": {"B"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromCache(tt.cache); !cerrors.IsCode(err, cerrors.CacheCorrupt) {
				t.Errorf("FromCache() error = %v, want CACHE_CORRUPT", err)
			}
		})
	}
}

func TestDecodeCacheRejectsGarbage(t *testing.T) {
	if _, err := DecodeCache([]byte("not zstd")); !cerrors.IsCode(err, cerrors.CacheCorrupt) {
		t.Errorf("DecodeCache() error = %v, want CACHE_CORRUPT", err)
	}
}

const buildRelease = `
id = "r1"
coding_system = "test"

[[concepts]]
code = "root"
term = "Root"
parents = []

[[concepts]]
code = "left"
term = "Left"
parents = ["root"]

[[concepts]]
code = "right"
term = "Right"
parents = ["root"]

[[concepts]]
code = "leaf"
term = "Leaf"
parents = ["left", "right"]

[[concepts]]
code = "other"
term = "Unrelated"
parents = []
`

func buildAdapter(t *testing.T) *ontology.Memory {
	t.Helper()
	r, err := ontology.DecodeRelease(buildRelease)
	if err != nil {
		t.Fatalf("DecodeRelease failed: %v", err)
	}
	return ontology.NewMemory(r)
}

func TestFromCodesBuildsClosure(t *testing.T) {
	g, report, err := FromCodes(context.Background(), buildAdapter(t), "r1", []string{"left", "left"}, BuildOptions{})
	if err != nil {
		t.Fatalf("FromCodes failed: %v", err)
	}

	// right is a parent of leaf but neither an ancestor nor a descendant of left
	if got, want := g.Nodes(), []string{"leaf", "left", "root"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if report.Seeds != 1 || report.TotalNodes != 3 || report.TotalEdges != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if g.Contains("other") || g.Contains("right") {
		t.Error("codes outside the closure should not be nodes")
	}
}

func TestFromCodesUnknownCodes(t *testing.T) {
	ctx := context.Background()
	adapter := buildAdapter(t)

	_, _, err := FromCodes(ctx, adapter, "r1", []string{"leaf", "bogus"}, BuildOptions{})
	if !cerrors.IsCode(err, cerrors.UnknownCode) {
		t.Fatalf("FromCodes() error = %v, want UNKNOWN_CODE", err)
	}

	g, report, err := FromCodes(ctx, adapter, "r1", []string{"leaf", "bogus"}, BuildOptions{IgnoreUnknown: true})
	if err != nil {
		t.Fatalf("FromCodes with IgnoreUnknown failed: %v", err)
	}
	if !reflect.DeepEqual(report.UnknownCodes, []string{"bogus"}) {
		t.Errorf("UnknownCodes = %v, want [bogus]", report.UnknownCodes)
	}
	if g.Contains("bogus") {
		t.Error("unknown code must not become a node")
	}
	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
}

func TestFromCodesUnknownRelease(t *testing.T) {
	_, _, err := FromCodes(context.Background(), buildAdapter(t), "r2", []string{"leaf"}, BuildOptions{})
	if !cerrors.IsCode(err, cerrors.ReleaseNotFound) {
		t.Errorf("FromCodes() error = %v, want RELEASE_NOT_FOUND", err)
	}
}
