package files

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Store performs the filesystem side of the mirror. Paths are slash separated.
type Store struct{}

// NewStore creates a new local store.
func NewStore() *Store {
	return &Store{}
}

// Exists reports whether a regular file is present at p.
// It is the only marker used to decide that a transfer can be skipped.
func (s *Store) Exists(p string) bool {
	info, err := os.Stat(filepath.FromSlash(p))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureDir creates dir and its parents. Concurrent callers racing on the same dir all succeed.
func (s *Store) EnsureDir(dir string) error {
	if err := os.MkdirAll(filepath.FromSlash(dir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFile atomically replaces p with data. It reports whether the content changed.
func (s *Store) WriteFile(p string, data []byte) (bool, error) {
	native := filepath.FromSlash(p)
	if current, err := os.ReadFile(native); err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(native), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(native), "."+filepath.Base(native)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, native); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to move %s into place: %w", p, err)
	}
	return true, nil
}

// CheckSize verifies that p is a non-empty regular file and, when expected > 0, that it has
// exactly that many bytes. It returns the actual size.
func (s *Store) CheckSize(p string, expected int64) (int64, error) {
	info, err := os.Stat(filepath.FromSlash(p))
	if err != nil {
		return 0, fmt.Errorf("transferred file missing: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", p)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%s is empty", p)
	}
	if expected > 0 && info.Size() != expected {
		return info.Size(), fmt.Errorf("%s has %d bytes, expected %d", p, info.Size(), expected)
	}
	return info.Size(), nil
}

// Remove deletes p. A missing file is not an error.
func (s *Store) Remove(p string) error {
	if err := os.Remove(filepath.FromSlash(p)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}
