// Package workspace locates the .codelists directory and serializes commands
// that write to it.
package workspace

import (
	"os"
	"path/filepath"

	"codelists/internal/config"
)

// FindRoot returns the nearest directory at or above start that contains a
// .codelists directory. ok is false when there is none, in which case root
// is start itself.
func FindRoot(start string) (root string, ok bool, err error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", false, err
	}
	for dir := abs; ; {
		info, statErr := os.Stat(filepath.Join(dir, config.DirName))
		if statErr == nil && info.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, false, nil
		}
		dir = parent
	}
}

// Dir is the .codelists directory of a workspace root.
func Dir(root string) string {
	return filepath.Join(root, config.DirName)
}
