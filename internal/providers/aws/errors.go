package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

type ErrorCategory string

// Error categories for device discovery failures
const (
	// ErrPermissionDenied is returned when the credentials may not describe instances
	ErrPermissionDenied ErrorCategory = "permission_denied"

	// ErrThrottling is returned when the EC2 API throttles discovery
	ErrThrottling ErrorCategory = "request_throttled"

	// ErrConfigurationError is returned when the SDK cannot find a region or credentials
	ErrConfigurationError ErrorCategory = "configuration_error"

	// ErrNetworkError is returned when the EC2 endpoint is unreachable
	ErrNetworkError ErrorCategory = "network_error"

	// ErrInvalidInput is returned for a rejected filter or tag key
	ErrInvalidInput ErrorCategory = "invalid_input"

	// ErrInternalError is returned for anything else
	ErrInternalError ErrorCategory = "internal_error"
)

// Error is a classified failure from EC2 device discovery.
type Error struct {
	Category ErrorCategory

	// Operation is the EC2 API call that failed
	Operation string

	// TagKey is the discovery tag in use, when known
	TagKey string

	Message    string
	Underlying error
}

// Error returns a formatted error message
func (e *Error) Error() string {
	if e.TagKey != "" {
		return fmt.Sprintf("%s: %s [%s, tag: %s]", e.Category, e.Message, e.Operation, e.TagKey)
	}
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Category, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewDiscoveryError creates a new discovery error with the specified details
func NewDiscoveryError(category ErrorCategory, operation, tagKey, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  operation,
		TagKey:     tagKey,
		Message:    message,
		Underlying: underlying,
	}
}

// IsErrorCategory checks if an error belongs to a specific error category
func IsErrorCategory(err error, category ErrorCategory) bool {
	var discoveryErr *Error
	if errors.As(err, &discoveryErr) {
		return discoveryErr.Category == category
	}
	return false
}

// ClassifyError maps an SDK error onto a category. API errors are matched
// on their code; anything else falls back to the message text.
func ClassifyError(err error, operation, tagKey string) *Error {
	if err == nil {
		return nil
	}

	code := err.Error()
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}

	newErr := func(c ErrorCategory, msg string) *Error {
		return NewDiscoveryError(c, operation, tagKey, msg, err)
	}

	switch {
	// Reference: https://docs.aws.amazon.com/AWSEC2/latest/APIReference/errors-overview.html
	case contains(code, "UnauthorizedOperation", "AuthFailure", "InvalidClientTokenId"):
		return newErr(ErrPermissionDenied, "Access denied")

	case contains(code, "RequestLimitExceeded", "Throttling"):
		return newErr(ErrThrottling, "Request throttled")

	case contains(code, "InvalidParameter", "InvalidFilter", "MalformedQueryString"):
		return newErr(ErrInvalidInput, "Invalid discovery filter")

	case contains(code, "could not find region", "failed to retrieve credentials", "no EC2 IMDS role found"):
		return newErr(ErrConfigurationError, "AWS SDK configuration error")

	case contains(code, "no such host", "connection refused", "timeout"):
		return newErr(ErrNetworkError, "Network error while accessing AWS API")

	default:
		return newErr(ErrInternalError, "Discovery failed")
	}
}

// contains reports whether s contains any of substrings, ignoring case
func contains(s string, substrings ...string) bool {
	lower := strings.ToLower(s)
	for _, substr := range substrings {
		if strings.Contains(lower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
