package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no content exists at a key
var ErrNotFound = errors.New("not found")

// Reader provides read access to stored content
type Reader interface {
	// GetReader returns a reader for the content at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if content exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Writer stores content under a key, replacing what was there
type Writer interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// Metadata contains storage object metadata
type Metadata struct {
	Size        int64
	ContentType string
}
