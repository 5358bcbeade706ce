// Package storage holds image binaries behind a small Store interface
// with a local-disk and an S3-compatible implementation. Which one runs
// is a startup decision taken from configuration, never inferred per
// request.
package storage

import (
	"context"
	"errors"
	"io"
)

// Store errors
var (
	// ErrNotFound is returned when the requested object does not exist
	ErrNotFound = errors.New("object not found")
	// ErrInvalidPath is returned for paths that escape the uploads root
	ErrInvalidPath = errors.New("path escapes the uploads root")
)

// Store persists image binaries under relative slash-separated paths of
// the form uploads/<orderID>/<filename>.
type Store interface {
	// Save writes an object, creating parent directories as needed.
	Save(ctx context.Context, relPath string, r io.Reader) error
	// Open returns a reader over an object. ErrNotFound if absent.
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Delete removes a single object. ErrNotFound if absent.
	Delete(ctx context.Context, relPath string) error
	// DeleteDir recursively removes a directory and its contents.
	DeleteDir(ctx context.Context, relPath string) error
	// RemoveDirIfEmpty removes a directory only when nothing is left in it.
	RemoveDirIfEmpty(ctx context.Context, relPath string) error
	// List returns the relative paths of all objects under a prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// URLPresigner is implemented by stores that can hand out a direct,
// time-limited URL for an object instead of streaming it through the
// server.
type URLPresigner interface {
	PresignURL(ctx context.Context, relPath string) (string, error)
}
