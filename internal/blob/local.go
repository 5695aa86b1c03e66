package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store holds transient file artifacts, keyed by the path returned from
// Put.
type Store interface {
	// Put saves a file and returns the path/filename.
	Put(filename string, data []byte) (string, error)

	// Get retrieves a file by path.
	Get(path string) ([]byte, error)

	// Delete removes a file.
	Delete(path string) error
}

// LocalStore implements the Store interface using the local filesystem.
// The scan pipeline uses it for temporary rendered-page artifacts.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a LocalStore rooted at basePath, creating the
// directory if needed.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put saves a file to local storage.
func (l *LocalStore) Put(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get retrieves a file from local storage.
func (l *LocalStore) Get(path string) ([]byte, error) {
	fullPath := filepath.Join(l.basePath, path)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage.
func (l *LocalStore) Delete(path string) error {
	fullPath := filepath.Join(l.basePath, path)
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
