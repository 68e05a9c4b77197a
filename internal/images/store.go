package images

import (
	"os"
	"path/filepath"
)

// Store persists fetched image bytes under run-relative paths.
type Store interface {
	Save(relPath string, data []byte) (string, error)
	Exists(relPath string) bool
}

// FSStore writes images beneath a base directory, creating subcategory
// directories on demand. Creating an existing directory is not an error.
type FSStore struct {
	baseDir string
}

// NewFSStore creates the base directory and returns a store rooted there.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the directory all relative paths resolve against.
func (s *FSStore) BaseDir() string {
	return s.baseDir
}

// Save writes data to relPath, creating parent directories as needed,
// and returns the full path written.
func (s *FSStore) Save(relPath string, data []byte) (string, error) {
	full := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return full, nil
}

// Exists reports whether relPath is already on disk.
func (s *FSStore) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, relPath))
	return err == nil
}
