package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrCatalogNotFound = fmt.Errorf("%w: catalog", ErrNotFound)
	ErrTestNotFound    = fmt.Errorf("%w: test definition", ErrNotFound)

	// Validation errors
	ErrInvalidCatalog = errors.New("invalid test catalog")
	ErrInvalidInput   = errors.New("invalid input")

	// Upstream errors
	ErrUpstream = errors.New("assumption check service unavailable")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// IsNotFoundError reports whether err wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
