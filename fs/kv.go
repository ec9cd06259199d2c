// Package fs provides file-based storage for the clinic directory.
package fs

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fwojciec/dentdir"
)

// Ensure KVStore implements dentdir.KVStore at compile time.
var _ dentdir.KVStore = (*KVStore)(nil)

// KVStore implements dentdir.KVStore with one file per key under a base
// directory. Writes replace the file atomically, so readers never observe a
// partial snapshot.
type KVStore struct {
	baseDir string
}

// NewKVStore creates a new KVStore rooted at baseDir. The directory is
// created on first write.
func NewKVStore(baseDir string) *KVStore {
	return &KVStore{baseDir: baseDir}
}

// Path returns the file holding key.
func (s *KVStore) Path(key string) (string, error) {
	if key == "" || key == "." || key == ".." {
		return "", dentdir.Errorf(dentdir.EINVALID, "invalid key %q", key)
	}
	return filepath.Join(s.baseDir, url.QueryEscape(key)), nil
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	path, err := s.Path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set replaces the value stored under key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, []byte(value))
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path. Parent directories are created as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
