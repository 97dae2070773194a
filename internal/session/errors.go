package session

import (
	"errors"
	"fmt"
)

// Error categories for device session failures
const (
	// ErrConnectionFailed covers unreachable devices, auth failures and timeouts
	ErrConnectionFailed = "connection_failed"

	// ErrRetrievalFailed means the session was established but the configuration could not be read
	ErrRetrievalFailed = "retrieval_failed"
)

// Error represents a failure talking to one device.
type Error struct {
	Category   string
	Device     string
	Message    string
	Underlying error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (device: %s): %v", e.Category, e.Message, e.Device, e.Underlying)
	}
	return fmt.Sprintf("%s: %s (device: %s)", e.Category, e.Message, e.Device)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewConnectionError creates a connection_failed error for device
func NewConnectionError(device, message string, underlying error) *Error {
	return &Error{Category: ErrConnectionFailed, Device: device, Message: message, Underlying: underlying}
}

// NewRetrievalError creates a retrieval_failed error for device
func NewRetrievalError(device, message string, underlying error) *Error {
	return &Error{Category: ErrRetrievalFailed, Device: device, Message: message, Underlying: underlying}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
