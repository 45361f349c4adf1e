// Package uuid generates time-ordered record IDs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUIDv7 strings so audit and asset IDs sort by creation time.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether raw is a well-formed UUID. Handlers use it to reject
// malformed path parameters before touching the store.
func Valid(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
