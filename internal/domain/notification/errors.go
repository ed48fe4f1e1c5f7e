package notification

import (
	"errors"
	"fmt"
)

// Common notification errors
var (
	// ErrNotFound is returned when a referenced notification, role or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when no caller identity is available
	ErrUnauthenticated = errors.New("unauthenticated")
)

// NotFoundError reports a missing referenced entity at publish time
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError reports invalid publish input. Terminal, not retryable.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreUnavailableError wraps a transient store failure. All engine writes
// are append-only and conflict-safe, so callers may blindly retry.
type StoreUnavailableError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error
func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
