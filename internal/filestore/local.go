package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/domain"
)

// Local stores files on the local filesystem under a single base directory.
// Stored paths are relative to the base directory and never contain path
// separators beyond the generated name, so a path read back from the database
// cannot escape the base.
type Local struct {
	baseDir string
}

// NewLocal creates a Local store rooted at baseDir, creating the directory
// if needed.
func NewLocal(baseDir string) (*Local, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filestore: base dir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create base dir: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Save streams r into a uuid-named file, keeping the original extension.
func (l *Local) Save(ctx context.Context, originalFilename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalFilename))
	name := uuid.New().String() + ext

	f, err := os.OpenFile(filepath.Join(l.baseDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("filestore: create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: close %s: %w", name, err)
	}

	return name, nil
}

// Open returns the stored file for reading.
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stored paths are bare generated names; reject anything that resolves
	// outside the base directory.
	if path == "" || filepath.Base(path) != path {
		return nil, fmt.Errorf("filestore: invalid path %q: %w", path, domain.ErrFileAccess)
	}

	f, err := os.Open(filepath.Join(l.baseDir, path))
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %v: %w", path, err, domain.ErrFileAccess)
	}

	return f, nil
}
