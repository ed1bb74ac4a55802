// Package filestore abstracts where uploaded CSV files live. Uploads record a
// storage-relative path, so the backing location can move without touching
// the database.
package filestore

import (
	"context"
	"io"
)

// Store persists uploaded files and serves them back to the import pipeline.
type Store interface {
	// Save writes the contents of r under a new storage-relative path and
	// returns that path. originalFilename is only used to pick an extension.
	Save(ctx context.Context, originalFilename string, r io.Reader) (string, error)

	// Open returns the file stored at the given storage-relative path.
	// Returns an error wrapping domain.ErrFileAccess if the file is missing
	// or unreadable.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
