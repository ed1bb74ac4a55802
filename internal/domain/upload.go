package domain

import (
	"time"

	"github.com/google/uuid"
)

// Upload tracks one bulk-import job from file submission to a terminal state.
// It is the single source of truth for external status pollers: every field
// below is persisted, and progress fields only move forward over time.
type Upload struct {
	ID               uuid.UUID
	OriginalFilename string

	// Filepath is the storage-relative path of the uploaded CSV,
	// resolvable through the file store.
	Filepath string

	Status UploadStatus

	// TotalRows is nil until the count pass has finished.
	TotalRows *int

	// ProcessedRows is monotonically non-decreasing and never exceeds
	// TotalRows once it is known.
	ProcessedRows int

	// ErrorMessage is set if and only if Status is failed.
	ErrorMessage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUpload creates a pending Upload for a freshly stored file.
func NewUpload(originalFilename, filepath string) *Upload {
	now := time.Now().UTC()
	return &Upload{
		ID:               uuid.New(),
		OriginalFilename: originalFilename,
		Filepath:         filepath,
		Status:           UploadStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Progress returns the completion ratio in [0, 1], or 0 while the total
// is still unknown.
func (u *Upload) Progress() float64 {
	if u.TotalRows == nil || *u.TotalRows == 0 {
		return 0
	}
	return float64(u.ProcessedRows) / float64(*u.TotalRows)
}
