package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// Pipeline failures never change the exit code; only startup problems do.
const (
	ExitSuccess     = 0 // Indicates successful execution.
	ExitErrorConfig = 4 // Indicates a configuration error.
)

// ConfigError represents a user configuration error, such as invalid flags or
// environment values. It indicates that the application cannot start.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// SubstrateError reports a failure of the execution substrate itself rather
// than of the scheduled work: a task panicked, a lane was closed before the
// task could run, or a handle was awaited more than once.
type SubstrateError struct {
	// Lane names the scheduling lane ("async" or "blocking").
	Lane string
	// Cause is the underlying failure.
	Cause error
}

// Error returns a message naming the lane and the cause.
func (e SubstrateError) Error() string {
	return fmt.Sprintf("%s task failed: %v", e.Lane, e.Cause)
}

// Unwrap returns the underlying cause.
func (e SubstrateError) Unwrap() error { return e.Cause }

// NetworkError reports that the fetch collaborator failed: the request could
// not be built or sent, or the server answered with a non-success status.
type NetworkError struct {
	// URL is the requested address.
	URL string
	// StatusCode is the HTTP status when a response was received, 0 otherwise.
	StatusCode int
	// Cause is the transport or parsing error, nil for status failures.
	Cause error
}

// Error returns a message describing the failed request.
func (e NetworkError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e NetworkError) Unwrap() error { return e.Cause }

// FetchError is returned by a labelled fetch operation. Its cause is usually
// a NetworkError.
type FetchError struct {
	// Label identifies the work item that issued the request.
	Label int
	// Cause is the underlying failure.
	Cause error
}

// Error returns the label and the cause message.
func (e FetchError) Error() string {
	return fmt.Sprintf("fetch %d: %v", e.Label, e.Cause)
}

// Unwrap returns the underlying cause.
func (e FetchError) Unwrap() error { return e.Cause }

// DecodeError reports that a response body is not valid text.
type DecodeError struct {
	// Label identifies the work item whose payload failed to decode.
	Label int
	// Cause describes the decoding failure.
	Cause error
}

// Error returns the label and the cause message.
func (e DecodeError) Error() string {
	return fmt.Sprintf("decode dataset %d: %v", e.Label, e.Cause)
}

// Unwrap returns the underlying cause.
func (e DecodeError) Unwrap() error { return e.Cause }

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// It returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
