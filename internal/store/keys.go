package store

import "github.com/google/uuid"

// KeyGenerator generates stable key values for new entities that arrive
// without one.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7KeyGenerator generates time-sortable UUIDv7 keys.
//
// Thread-safety: UUIDv7KeyGenerator is stateless and safe for concurrent use.
type UUIDv7KeyGenerator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7KeyGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
