package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store is a blob store for offer artifacts keyed by relative paths such as
// "uploads/offer_<id>.md" or "pdf/offer_<id>.pdf". Writes overwrite by key.
type Store interface {
	Save(key string, data []byte) error
	Read(key string) ([]byte, error)
	Exists(key string) bool
	// Remove deletes a blob. A missing blob is not an error.
	Remove(key string) error
}

// FileStore stores artifacts on the local filesystem under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a filesystem store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Path returns the absolute path for a key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FileStore) Save(key string, data []byte) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && !info.IsDir()
}

func (s *FileStore) Remove(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact %s: %w", key, err)
	}
	return nil
}
