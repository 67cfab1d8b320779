package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentStore defines the interface for invoice document storage. The
// core logic never knows whether it is talking to a local directory or a
// real cloud drive.
type DocumentStore interface {
	// Save stores a document and returns the path/filename it was stored under
	Save(filename string, data []byte) (string, error)

	// Get retrieves a document by path
	Get(path string) ([]byte, error)

	// Delete removes a document
	Delete(path string) error

	// Link returns the externally shareable link for a stored document
	Link(path string) string
}

// LocalStore implements the DocumentStore interface using the local
// filesystem, standing in for the cloud drive backend.
type LocalStore struct {
	basePath string
	linkBase string
}

// NewLocalStore creates a new LocalStore instance
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
		linkBase: "local://documents",
	}, nil
}

// Save stores a document in local storage
func (l *LocalStore) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get retrieves a document from local storage
func (l *LocalStore) Get(path string) ([]byte, error) {
	fullPath := filepath.Join(l.basePath, path)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a document from local storage
func (l *LocalStore) Delete(path string) error {
	fullPath := filepath.Join(l.basePath, path)
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Link returns the externally shareable link for a stored document
func (l *LocalStore) Link(path string) string {
	return l.linkBase + "/" + strings.TrimPrefix(path, "/")
}
