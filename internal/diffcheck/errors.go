package diffcheck

import (
	"errors"
	"fmt"
)

// Comparison error categories
const (
	ErrInvalidInput     = "invalid_input"     // missing or malformed device name
	ErrComparisonFailed = "comparison_failed" // a backup could not be listed or read
	ErrInsufficientData = "insufficient_data" // fewer than two backups on disk
)

// DiffError is a categorised comparison failure for one device.
type DiffError struct {
	Category   string
	Message    string
	Device     string // empty when the failure is not tied to a device
	Underlying error
}

func (e *DiffError) Error() string {
	if e.Device == "" {
		return e.Category + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (device: %s)", e.Category, e.Message, e.Device)
}

func (e *DiffError) Unwrap() error {
	return e.Underlying
}

// NewDiffError builds a DiffError; underlying may be nil.
func NewDiffError(category, message, device string, underlying error) *DiffError {
	return &DiffError{Category: category, Message: message, Device: device, Underlying: underlying}
}

// IsErrorCategory reports whether any DiffError in err's chain has category.
func IsErrorCategory(err error, category string) bool {
	var e *DiffError
	return errors.As(err, &e) && e.Category == category
}
