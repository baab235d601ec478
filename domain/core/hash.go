package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, for logs
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Domain-specific hash types
type (
	CatalogVersion Hash
	InputHash      Hash
)

func NewCatalogVersion(data []byte) CatalogVersion { return CatalogVersion(NewHash(data)) }

func (h CatalogVersion) String() string { return Hash(h).String() }
func (h InputHash) String() string      { return Hash(h).String() }

// ComputeInputHash fingerprints a scoring input tuple. Fields are written in sorted
// key order so map iteration order never changes the result.
func ComputeInputHash(version CatalogVersion, fields map[string]string, sampleSize int) InputHash {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// keys and values are length-prefixed so no field can imitate a separator
	var data strings.Builder
	data.WriteString(version.String())
	fmt.Fprintf(&data, "|n=%d", sampleSize)
	for _, key := range keys {
		value := fields[key]
		fmt.Fprintf(&data, "|%d:%s=%d:%s", len(key), key, len(value), value)
	}

	return InputHash(NewHash([]byte(data.String())))
}
