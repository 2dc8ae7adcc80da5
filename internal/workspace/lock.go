//go:build !windows

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	cerrors "codelists/internal/errors"
)

const lockFile = "write.lock"

// Lock is an exclusive hold on a workspace's database for writing.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the write lock of the workspace directory dir without
// blocking. It fails with PRECONDITION_FAILED while another process holds it.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, lockedError(path)
	}

	if err := writePID(file); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, err
	}
	return &Lock{path: path, file: file}, nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("seeking lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return fmt.Errorf("writing PID to lock file: %w", err)
	}
	return nil
}

func lockedError(path string) error {
	msg := "workspace is locked by another codelists command"
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		msg += fmt.Sprintf(" (PID %s)", strings.TrimSpace(string(content)))
	}
	return cerrors.New(cerrors.PreconditionFailed, msg).
		WithDetails(map[string]interface{}{"lockFile": path})
}

// Release drops the lock and removes the lock file. It is safe on nil.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
