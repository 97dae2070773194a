package snapshot

import (
	"errors"
	"fmt"
)

// Error categories for snapshot store failures
const (
	// ErrStorageFailed means the store could not be written; fatal for a fleet run
	ErrStorageFailed = "storage_failed"

	// ErrNotFound means a listed snapshot vanished before it was read
	ErrNotFound = "not_found"

	// ErrLocked means another run holds the backup root lock
	ErrLocked = "locked"

	// ErrInvalidInput represents an unusable device name or path
	ErrInvalidInput = "invalid_input"
)

// StoreError represents a snapshot store failure with the file involved.
type StoreError struct {
	Category   string
	Message    string
	Path       string
	Underlying error
}

// Error returns the error message
func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Category, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Underlying
}

// NewStoreError creates a new error with the given category and details
func NewStoreError(category, message, path string, underlying error) *StoreError {
	return &StoreError{
		Category:   category,
		Message:    message,
		Path:       path,
		Underlying: underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	var e *StoreError
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
