// Package importer turns uploaded CSV files into catalog rows. It owns the
// upload state machine: pending uploads move to processing when a run
// starts, then to completed or failed, and never leave a terminal state.
package importer

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/printshop/catalog-backend/internal/domain"
)

// UploadTracker is the persistence contract for upload state and progress.
// All methods use only domain types, no adapter imports.
// Implemented by upload.Repo.
type UploadTracker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Upload, error)

	// Status transitions. Each returns domain.ErrNotFound for a missing
	// upload and domain.ErrConflict when the current status forbids the
	// transition.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error

	// Progress reporting, valid only while processing.
	SetTotalRows(ctx context.Context, id uuid.UUID, total int) error
	IncrementProcessed(ctx context.Context, id uuid.UUID, delta int) error
}

// ProductBulkWriter persists mapped products in batches.
// Implemented by product.Repo.
type ProductBulkWriter interface {
	BulkUpsert(ctx context.Context, products []domain.Product) (int, error)
}

// BlobOpener serves stored upload files.
// Implemented by filestore.Local.
type BlobOpener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
