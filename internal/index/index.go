// Package index provides the embedding index: fixed-dimension image embeddings
// with metadata, answering similarity and filter queries.
package index

import (
	"context"

	"github.com/hyperjump/curio/internal/models"
)

// Index owns the embedding vector and metadata record for every image in the
// active dataset. Records are immutable after Build; all read methods are safe
// for concurrent callers. Adaptation never rewrites index data.
type Index interface {
	// Dimensions returns the embedding dimension D shared by all records.
	Dimensions() int
	// Size returns the number of records.
	Size() int
	// Record returns the record with the given ID.
	Record(id int64) (*models.ImageRecord, bool)
	// Similarities streams (record, cosine similarity) pairs for every record.
	// fn returns false to stop early. Records are visited in ascending ID order.
	Similarities(ctx context.Context, query []float32, fn func(rec *models.ImageRecord, sim float64) bool) error
	// Filter returns the set of IDs whose record satisfies pred. Embeddings are
	// not touched.
	Filter(pred func(*models.ImageRecord) bool) map[int64]struct{}
	// Save persists the index to path.
	Save(path string) error
	Close() error
}
