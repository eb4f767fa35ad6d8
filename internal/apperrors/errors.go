// Package apperrors defines the error taxonomy shared by the query,
// fetch, and insight layers: caller mistakes (ValidationError) versus
// upstream data-store failures (UpstreamError).
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates the caller supplied a malformed request
// (wrong filter shape, unknown table, missing required field). It is
// surfaced immediately and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError with a formatted message.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError indicates the upstream row store returned a non-success
// response or was unreachable. Status is zero when the request never
// produced an HTTP response.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream error: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstream creates an UpstreamError for a non-success HTTP status.
func NewUpstream(status int, message string) *UpstreamError {
	return &UpstreamError{Status: status, Message: message}
}

// WrapUpstream creates an UpstreamError around a transport-level failure.
func WrapUpstream(err error, message string) *UpstreamError {
	return &UpstreamError{Message: message, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
