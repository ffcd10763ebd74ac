// Package idgen provides IDGenerator implementations.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// UUID generates random UUIDv4 identifiers.
type UUID struct{}

// New returns a new UUID string.
func (UUID) New() string {
	return uuid.NewString()
}

// Sequential generates predictable identifiers for testing.
type Sequential struct {
	prefix string
	n      int
}

// NewSequential creates a sequential generator with the given prefix.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next identifier, e.g. "evt-1".
func (s *Sequential) New() string {
	s.n++
	return s.prefix + "-" + strconv.Itoa(s.n)
}
