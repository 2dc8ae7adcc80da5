package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(Dir(root), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindRoot = %s, %v, %v", got, ok, err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindRoot = %s, want %s", got, want)
	}
}

func TestFindRootWithoutWorkspace(t *testing.T) {
	dir := t.TempDir()
	// a .codelists file is not a workspace
	if err := os.WriteFile(filepath.Join(dir, ".codelists"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		// a workspace above the temp dir would be found first
		t.Skipf("found workspace at %s above the temp dir", got)
	}
	if want, _ := filepath.Abs(dir); got != want {
		t.Errorf("FindRoot = %s, want the start directory", got)
	}
}
