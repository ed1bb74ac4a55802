package domain

import (
	"errors"
	"unicode/utf8"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")

	// Import error taxonomy. FileAccess and Parse are fatal to a job,
	// Storage is fatal to a job but leaves earlier committed batches
	// applied. Row-level validation failures wrap ErrValidation and are
	// absorbed by the orchestrator without failing the job.
	ErrFileAccess = errors.New("file access error")
	ErrParse      = errors.New("csv parse error")
	ErrStorage    = errors.New("storage error")
)

// MaxErrorMessageLength bounds persisted error messages; the uploads table
// column is varchar(255).
const MaxErrorMessageLength = 255

// TruncateErrorMessage shortens msg to at most max runes so it fits the
// error_message column. Non-positive max falls back to
// MaxErrorMessageLength.
func TruncateErrorMessage(msg string, max int) string {
	if max <= 0 {
		max = MaxErrorMessageLength
	}
	if utf8.RuneCountInString(msg) <= max {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:max])
}
