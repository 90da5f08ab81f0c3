package domain

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Download task domain errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDestinationLocked      = errors.New("destination is locked by another download")
	ErrInsufficientSpace      = errors.New("insufficient space")

	// Version domain errors
	ErrUnknownLoader = errors.New("unknown loader")
)

// NetworkError is returned when a mirror is unreachable or timed out
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned for a non-2xx response
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s : %s", e.URL, status)
}

// ChecksumMismatchError is returned when a downloaded artifact does not match
// its reference hash. It is never retried against another mirror.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s (artifact discarded)",
		e.Path, e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is or wraps a ChecksumMismatchError
func IsChecksumMismatch(err error) bool {
	var ce *ChecksumMismatchError
	return errors.As(err, &ce)
}

// NoMirrorsAvailableError is returned when every candidate mirror failed.
// Err aggregates every per-attempt error in the order they occurred.
type NoMirrorsAvailableError struct {
	URL        string
	Candidates int
	Err        error
}

func (e *NoMirrorsAvailableError) Error() string {
	errs := e.Errors()
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("no mirrors available for %s (%d candidates, %d errors): %s",
		e.URL, e.Candidates, len(errs), strings.Join(msgs, "; "))
}

// Unwrap returns the aggregated error so errors.Is and errors.As see every attempt
func (e *NoMirrorsAvailableError) Unwrap() error {
	return e.Err
}

// Errors returns the individual per-attempt errors
func (e *NoMirrorsAvailableError) Errors() []error {
	return multierr.Errors(e.Err)
}

// MetadataParseError describes one malformed entry in a loader manifest
type MetadataParseError struct {
	Loader string
	Entry  string
	Err    error
}

func (e *MetadataParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s manifest entry %q: %v", e.Loader, e.Entry, e.Err)
	}
	return fmt.Sprintf("malformed %s manifest entry %q", e.Loader, e.Entry)
}

// Unwrap returns the underlying decode error
func (e *MetadataParseError) Unwrap() error {
	return e.Err
}

// SkippableError represents an error that can be logged and skipped.
// Processing can continue with the next item when this error occurs.
type SkippableError struct {
	Err     error
	Context string
}

// Error returns the error message
func (e *SkippableError) Error() string {
	if e.Context != "" {
		if e.Err != nil {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Context
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "skippable error"
}

// Unwrap returns the underlying error
func (e *SkippableError) Unwrap() error {
	return e.Err
}

// NewSkippableError creates a new skippable error
func NewSkippableError(err error, context string) *SkippableError {
	return &SkippableError{Err: err, Context: context}
}

// IsSkippable returns true if the error can be skipped
func IsSkippable(err error) bool {
	var se *SkippableError
	return errors.As(err, &se)
}

// IsTransient returns true for per-mirror failures that justify trying
// again or moving to the next mirror
func IsTransient(err error) bool {
	var ne *NetworkError
	var he *HTTPStatusError
	return errors.As(err, &ne) || errors.As(err, &he)
}
