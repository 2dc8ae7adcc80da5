// Package testutil provides fixture releases and golden-file helpers for tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"codelists/internal/graph"
	"codelists/internal/ontology"
)

// Fixture release IDs under testdata/releases.
const (
	ElbowV1 = "elbow_v1"
	ElbowV2 = "elbow_v2"
	ElbowV3 = "elbow_v3"
)

// LoadRelease loads testdata/releases/<id>.toml, failing the test on error.
func LoadRelease(t *testing.T, id string) *ontology.Release {
	t.Helper()

	path := ReleasePath(t, id)
	r, err := ontology.LoadReleaseFile(path)
	if err != nil {
		t.Fatalf("Failed to load release fixture %s: %v", id, err)
	}
	return r
}

// ReleasePath returns the path of a fixture release file.
func ReleasePath(t *testing.T, id string) string {
	t.Helper()

	path := filepath.Join(testdataRoot(t), "releases", id+".toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Release fixture not found: %s", path)
	}
	return path
}

// Memory returns an in-memory ontology holding the named fixture releases.
func Memory(t *testing.T, ids ...string) *ontology.Memory {
	t.Helper()

	releases := make([]*ontology.Release, 0, len(ids))
	for _, id := range ids {
		releases = append(releases, LoadRelease(t, id))
	}
	return ontology.NewMemory(releases...)
}

// Graph builds the closure of seeds in a fixture release.
func Graph(t *testing.T, release string, seeds ...string) *graph.Graph {
	t.Helper()

	g, _, err := graph.FromCodes(context.Background(), Memory(t, release), release, seeds, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Failed to build graph for %v: %v", seeds, err)
	}
	return g
}

// ElbowGraph is the whole first elbow release.
func ElbowGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return Graph(t, ElbowV1, "128133004", "156659008")
}

// testdataRoot returns the absolute path to testdata/.
func testdataRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	return filepath.Join(projectRoot, "testdata")
}
