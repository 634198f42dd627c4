package veneer

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a call failure.
type ErrorCode string

const (
	// CodeDeprecated is returned when a strict-deprecated endpoint is called.
	CodeDeprecated ErrorCode = "deprecated"
	// CodeTransport covers network-level failures where no response was received.
	CodeTransport ErrorCode = "transport"
	// CodeStatus covers responses received with an error-indicating status.
	CodeStatus ErrorCode = "status"
	// CodeCanceled covers calls superseded under latest-wins cancellation or
	// canceled by the caller's context.
	CodeCanceled ErrorCode = "canceled"
	// CodeConfiguration covers malformed endpoint declarations and generator config.
	CodeConfiguration ErrorCode = "configuration"
	// CodeInternal is the fallback for everything else.
	CodeInternal ErrorCode = "internal"
)

// Error is the standard error type returned by the client and the generator.
type Error struct {
	Code    ErrorCode
	Message string

	// Status is the HTTP status for CodeStatus errors, 0 otherwise.
	Status int
	// Response carries the received envelope for CodeStatus errors, so error
	// handlers and retry predicates can inspect the failing response.
	Response *Response

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a new client error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new client error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// wrapError classifies an underlying error while keeping it on the unwrap chain.
func wrapError(code ErrorCode, err error) *Error {
	return &Error{
		Code:    code,
		Message: err.Error(),
		cause:   err,
	}
}

// statusError builds a CodeStatus error for a response with an error status.
func statusError(res *Response) *Error {
	return &Error{
		Code:     CodeStatus,
		Message:  fmt.Sprintf("request failed with status %d", res.Status),
		Status:   res.Status,
		Response: res,
	}
}

// CodeOf extracts the ErrorCode from an error chain.
// Context cancellation maps to CodeCanceled; anything unclassified is CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCanceled
	}
	return CodeInternal
}

// StatusOf extracts the HTTP status from an error chain, or 0 when the
// failure produced no response.
func StatusOf(err error) int {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Status
	}
	return 0
}

// IsRetryable reports whether an error is retried by the default retry
// predicate: network-level errors with no response, or responses with
// status >= 500.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTransport:
		return true
	case CodeStatus:
		return StatusOf(err) >= 500
	default:
		return false
	}
}
