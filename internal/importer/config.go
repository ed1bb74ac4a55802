package importer

import "github.com/printshop/catalog-backend/internal/domain"

const defaultBatchSize = 100

// Config tunes a Pipeline.
type Config struct {
	// BatchSize is the number of valid rows accumulated before a flush.
	BatchSize int

	// MaxErrorLength bounds the persisted failure message, in runes.
	MaxErrorLength int
}

// normalize fills zero values with defaults.
func (c *Config) normalize() {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxErrorLength <= 0 {
		c.MaxErrorLength = domain.MaxErrorMessageLength
	}
}
