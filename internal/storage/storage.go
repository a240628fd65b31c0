package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound indicates the requested blob does not exist in the store.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore abstracts where raw file content lives. Save places a new
// blob under the store's root and returns its location; Write targets
// an exact location (thumbnail derivatives are written beside their
// source as <location>_<width>). Locations are opaque to callers and
// stored verbatim as FileNode.StoragePath.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Write(ctx context.Context, location string, data []byte) error
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Stat(ctx context.Context, location string) error
}
