package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a prediction does not exist or its id is malformed.
var ErrNotFound = errors.New("prediction not found")

// ValidationError marks client input that can never succeed as sent.
type ValidationError struct {
	Reason string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InferenceError describes a failed call to the detection service.
// StatusCode is zero when no response was received.
type InferenceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *InferenceError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("inference service returned status %d: %s", e.StatusCode, e.Body)
	case e.Body != "":
		return fmt.Sprintf("inference service returned unusable body: %v: %s", e.Err, e.Body)
	default:
		return fmt.Sprintf("inference service call failed: %v", e.Err)
	}
}

func (e *InferenceError) Unwrap() error { return e.Err }

// StorageError wraps a failed database operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ArchiveError wraps a failed blob store operation.
type ArchiveError struct {
	Op  string
	Key string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
