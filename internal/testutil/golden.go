package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// GoldenPath returns testdata/golden/<name>.json.
func GoldenPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataRoot(t), "golden", name+".json")
}

// CompareGolden compares got, marshalled as indented JSON, against the golden
// file, failing with a diff on mismatch. Maps marshal with sorted keys, so
// status maps compare deterministically.
func CompareGolden(t *testing.T, name string, got any) {
	t.Helper()

	data, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal %s: %v", name, err)
	}
	data = append(data, '\n')
	goldenPath := GoldenPath(t, name)

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				goldenPath, string(data), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(data, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, lineDiff(string(expected), string(data), goldenPath), t.Name())
	}
}

// lineDiff reports differing lines with their line numbers.
func lineDiff(expected, got, path string) string {
	var buf bytes.Buffer

	expectedLines := strings.Split(expected, "\n")
	gotLines := strings.Split(got, "\n")

	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)

	for i := 0; i < max(len(expectedLines), len(gotLines)); i++ {
		var expLine, gotLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(gotLines) {
			gotLine = gotLines[i]
		}
		if expLine == gotLine {
			continue
		}
		fmt.Fprintf(&buf, "@@ line %d @@\n", i+1)
		if i < len(expectedLines) {
			buf.WriteString("-" + expLine + "\n")
		}
		if i < len(gotLines) {
			buf.WriteString("+" + gotLine + "\n")
		}
	}
	return buf.String()
}
