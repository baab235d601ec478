package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Domain-specific ID types
type (
	SessionID ID
	DatasetID ID
)

// String conversions for domain IDs
func (id SessionID) String() string { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }

// NewSessionID creates a time-ordered session identifier
func NewSessionID() SessionID {
	return SessionID(NewID())
}

// ParseSessionID parses a string into SessionID. Session IDs are always UUIDs.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID(parsed.String()), nil
}

// maxDatasetIDLength bounds identifiers forwarded to the statistics backend
const maxDatasetIDLength = 255

// ParseDatasetID parses a string into DatasetID. Dataset IDs are opaque, but
// must be non-empty, bounded and free of control characters.
func ParseDatasetID(s string) (DatasetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	if len(s) > maxDatasetIDLength {
		return "", fmt.Errorf("dataset ID longer than %d bytes", maxDatasetIDLength)
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("dataset ID %q contains control characters", s)
	}
	return DatasetID(s), nil
}
