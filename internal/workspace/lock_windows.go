//go:build windows

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	cerrors "codelists/internal/errors"
)

const lockFile = "write.lock"

// Lock is an exclusive hold on a workspace's database for writing. On
// Windows it relies on exclusive creation of the lock file, so a crashed
// process leaves a stale lock behind.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the write lock of the workspace directory dir.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if os.IsExist(err) {
		return nil, cerrors.New(cerrors.PreconditionFailed,
			"workspace is locked by another codelists command").
			WithDetails(map[string]interface{}{"lockFile": path})
	}
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file. It is safe on nil.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
}
