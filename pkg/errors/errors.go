package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Upstream fetch errors

var (
	// ErrFetchFailed indicates the upstream position endpoint could not be read.
	// A failed fetch means "state unknown for this cycle", never "all closed".
	ErrFetchFailed = errors.New("position fetch failed")

	// ErrRateLimited indicates the delivery sink reported throttling
	ErrRateLimited = errors.New("rate limited")
)

// Delivery errors

var (
	// ErrQueueStopped indicates the notification queue is no longer draining
	ErrQueueStopped = errors.New("notification queue stopped")
)

// RateLimitError carries the sink-reported retry-after duration for a
// throttled delivery. It unwraps to ErrRateLimited so callers can classify
// with errors.Is and extract the duration with errors.As.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Unwrap returns the sentinel rate-limit error
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
