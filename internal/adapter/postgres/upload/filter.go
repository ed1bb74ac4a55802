package upload

import "github.com/printshop/catalog-backend/internal/domain"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Filter narrows and paginates List results.
type Filter struct {
	Status *domain.UploadStatus
	Limit  int
	Offset int
}

// normalize clamps pagination to sane bounds.
func (f *Filter) normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
