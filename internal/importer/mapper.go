package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/printshop/catalog-backend/internal/domain"
)

// Column names of the supplier feed.
const (
	ColUniqueKey            = "UNIQUE_KEY"
	ColProductTitle         = "PRODUCT_TITLE"
	ColProductDescription   = "PRODUCT_DESCRIPTION"
	ColStyle                = "STYLE#"
	ColSanmarMainframeColor = "SANMAR_MAINFRAME_COLOR"
	ColSize                 = "SIZE"
	ColColorName            = "COLOR_NAME"
	ColPiecePrice           = "PIECE_PRICE"
)

// MapRecord converts one CSV record into a Product. A record without a
// usable UNIQUE_KEY or with an unparsable price returns an error wrapping
// domain.ErrValidation; such records are skipped by the pipeline, they do
// not fail the job.
func MapRecord(rec Record) (domain.Product, error) {
	key := strings.TrimSpace(rec[ColUniqueKey])
	if key == "" {
		return domain.Product{}, fmt.Errorf("missing %s: %w", ColUniqueKey, domain.ErrValidation)
	}

	price, err := parsePrice(rec[ColPiecePrice])
	if err != nil {
		return domain.Product{}, fmt.Errorf("key %s: %w", key, err)
	}

	return domain.Product{
		UniqueKey:            key,
		ProductTitle:         optional(rec, ColProductTitle),
		ProductDescription:   optional(rec, ColProductDescription),
		Style:                optional(rec, ColStyle),
		SanmarMainframeColor: optional(rec, ColSanmarMainframeColor),
		Size:                 optional(rec, ColSize),
		ColorName:            optional(rec, ColColorName),
		PiecePrice:           price,
	}, nil
}

// optional returns the trimmed value of a column, or nil when the column is
// absent or blank.
func optional(rec Record, col string) *string {
	v := strings.TrimSpace(rec[col])
	if v == "" {
		return nil
	}
	return &v
}

// priceReplacer strips currency symbols and thousands separators before
// numeric parsing.
var priceReplacer = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

// parsePrice converts a currency-formatted string ("$1,234.50") to a float.
// A blank value is valid and yields nil.
func parsePrice(raw string) (*float64, error) {
	cleaned := strings.TrimSpace(priceReplacer.Replace(raw))
	if cleaned == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", ColPiecePrice, raw, domain.ErrValidation)
	}
	return &v, nil
}
