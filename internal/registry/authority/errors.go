package authority

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy for authority errors.
//
// All connector implementations classify failures into these categories so the
// orchestrator can make consistent retry and caching decisions regardless of
// the underlying protocol or API.
type ErrorCategory string

const (
	// ErrorTimeout indicates the authority took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the authority returned invalid/malformed data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates session or API-key issues.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the authority is unavailable.
	ErrorOutage ErrorCategory = "outage"

	// ErrorContractMismatch indicates the authority API shape changed.
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorRateLimited indicates too many requests.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps authority call failures with normalized categorization.
//
// The structured type lets the orchestrator decide about retries and caching
// without inspecting raw error messages or coupling to connector internals.
// Validation failures never become an *Error: they are rejected before any
// external call is made.
type Error struct {
	Category   ErrorCategory
	Authority  string
	Message    string
	Underlying error
	Retryable  bool // set automatically from Category (timeout, outage, rate-limited)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("authority %s [%s]: %s: %v", e.Authority, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("authority %s [%s]: %s", e.Authority, e.Category, e.Message)
}

// Unwrap supports error unwrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a normalized authority error with automatic retry classification.
// Transient failures (timeout, outage, rate-limited) are marked retryable;
// everything else is permanent for the current call.
func NewError(category ErrorCategory, authorityName, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		Authority:  authorityName,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// Category extracts the error category from an error.
func Category(err error) ErrorCategory {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorInternal
}
