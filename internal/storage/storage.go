// Package storage provides archive storage backends for catalog
// snapshots.
package storage

import (
	"context"
	"errors"
	"io"
)

// Common errors for archive storage operations.
var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrUploadFailed    = errors.New("upload failed")
	ErrDownloadFailed  = errors.New("download failed")
	ErrDeleteFailed    = errors.New("delete failed")
)

// ArchiveStore abstracts where catalog snapshot archives live.
// Implementations include S3 and the local filesystem.
type ArchiveStore interface {
	// Put stores an archive under the given name, replacing any
	// existing archive with that name.
	Put(ctx context.Context, name string, body io.Reader) error

	// Get opens an archive for reading. The caller closes the result.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes an archive. Deleting a missing archive is not an
	// error.
	Delete(ctx context.Context, name string) error

	// List returns all archive names, sorted.
	List(ctx context.Context) ([]string, error)
}
