package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTestNotFound means the test id is unknown to the registry.
	ErrTestNotFound = errors.New("test not found")

	// ErrNotOwner means the caller is not the user who created the test.
	ErrNotOwner = errors.New("you don't have access to this test")

	// ErrNotRunning means a stop was requested for a test that is not running.
	ErrNotRunning = errors.New("test is not running")

	// ErrResultsNotReady means results were requested before a terminal state.
	ErrResultsNotReady = errors.New("test results not available yet")

	// ErrShuttingDown means the service refuses new work during shutdown.
	ErrShuttingDown = errors.New("service is shutting down")

	// ErrUnknownMethod means the method is not in the catalog.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidProxyType means the numeric proxy type is not 1, 4 or 5.
	ErrInvalidProxyType = errors.New("invalid proxy type, must be 1 (HTTP), 4 (SOCKS4) or 5 (SOCKS5)")
)

// ValidationError carries the offending field for 400 responses.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MethodError wraps ErrUnknownMethod with the requested name.
type MethodError struct {
	Method string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("unknown method: %s", e.Method)
}

func (e *MethodError) Unwrap() error {
	return ErrUnknownMethod
}
