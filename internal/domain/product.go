package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is one catalog row, keyed by the supplier's business identifier.
// Exactly one row exists per UniqueKey; re-ingestion overwrites the
// descriptive attributes and UpdatedAt, it never duplicates the row.
//
// All descriptive attributes are optional in the source feed, so they are
// modeled as pointers: nil means the column was absent from the record,
// which is distinct from an empty string.
type Product struct {
	ID        uuid.UUID
	UniqueKey string

	ProductTitle         *string
	ProductDescription   *string
	Style                *string
	SanmarMainframeColor *string
	Size                 *string
	ColorName            *string

	// PiecePrice is parsed from the feed's currency-formatted string
	// (e.g. "$12.50", "1,000.00").
	PiecePrice *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
