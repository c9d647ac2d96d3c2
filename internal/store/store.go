// Package store caches fetched collections as named blobs.
//
// Two drivers are available: a directory of JSON files (the layout the old
// output_data dumps used) and a single SQLite database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Read when no blob has the given name.
var ErrNotFound = errors.New("blob not found")

// BlobStore is a flat name -> bytes store.
type BlobStore interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store for driver rooted at path. For the file driver path is
// a directory; for sqlite it is the database file.
func Open(driver, path string) (BlobStore, error) {
	switch strings.ToLower(driver) {
	case "", DriverFile, "json":
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache driver %q (valid: %s, %s)", driver, DriverFile, DriverSQLite)
	}
}

// FileStore writes each blob to <dir>/<name>.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean != name || clean == "." || clean == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}

// Write replaces the blob atomically via a temp file rename.
func (s *FileStore) Write(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Read returns ErrNotFound when the file does not exist.
func (s *FileStore) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
