package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned (wrapped) when a key does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidKey is returned for keys that escape the storage root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// FileInfo describes one stored object.
type FileInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is the object store holding event snapshots and generated audio.
// Keys are slash-separated regardless of backend.
type Storage interface {
	// Write stores the reader's content under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read opens the object for reading. The caller closes it.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the objects directly under dir whose names start with
	// namePrefix, sorted by key. Nested objects are not included.
	List(ctx context.Context, dir, namePrefix string) ([]FileInfo, error)

	// Stat returns the object's metadata.
	Stat(ctx context.Context, key string) (FileInfo, error)

	// GetURL returns a URL the viewer can fetch the object from. S3 returns a
	// presigned (or public) URL valid for expires; local storage returns the
	// key as an absolute path.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
