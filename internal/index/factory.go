// Package index provides index implementations and a factory for creating them.
package index

import (
	"fmt"

	"github.com/hyperjump/curio/internal/models"
)

// Type identifies an index backend.
type Type string

const (
	// TypeMemory uses exact in-memory brute-force cosine search. Deterministic;
	// good up to a few hundred thousand images.
	TypeMemory Type = "memory"
)

// New builds an index of the given type from records. An approximate backend
// may be added behind the same contract; it must return the exact top-K within
// a documented tolerance.
func New(indexType string, records []*models.ImageRecord) (Index, error) {
	switch Type(indexType) {
	case TypeMemory, "":
		return Build(records)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory)", indexType)
	}
}
