package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps blobs on the local filesystem under a single root
// directory. Blob names are caller-generated UUIDs, so writes never
// collide and no locking is needed; every location is write-once.
type DiskStore struct {
	root string
}

// NewDiskStore creates a filesystem-backed blob store rooted at root.
func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

// EnsureRoot creates the storage root if it does not exist yet.
func (s *DiskStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create storage root %s: %w", s.root, err)
	}
	return nil
}

// Save streams r into a new file under the root and returns its
// absolute path. A partial file is removed on write failure.
func (s *DiskStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	location := filepath.Join(s.root, name)

	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	file, err := os.Create(location)
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", location, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		os.Remove(location)
		return "", fmt.Errorf("write blob %s: %w", location, err)
	}

	return location, nil
}

// Write stores data at the exact location.
func (s *DiskStore) Write(_ context.Context, location string, data []byte) error {
	if err := os.WriteFile(location, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", location, err)
	}
	return nil
}

// Open returns a reader over the blob at location.
func (s *DiskStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	file, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", location, err)
	}
	return file, nil
}

// Stat reports whether a blob exists at location.
func (s *DiskStore) Stat(_ context.Context, location string) error {
	if _, err := os.Stat(location); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("stat blob %s: %w", location, err)
	}
	return nil
}

var _ BlobStore = (*DiskStore)(nil)
