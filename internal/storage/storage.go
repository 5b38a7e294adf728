// Package storage defines the persistence interface for the image catalog.
package storage

import (
	"context"

	"github.com/hyperjump/curio/internal/models"
)

// Storage persists imported image records (embedding plus metadata) so a
// server restart does not need to re-import the dataset files.
type Storage interface {
	// ReplaceDataset transactionally replaces the whole catalog with records.
	ReplaceDataset(ctx context.Context, records []*models.ImageRecord) error
	// LoadRecords returns every record in ascending ID order.
	LoadRecords(ctx context.Context) ([]*models.ImageRecord, error)
	// GetRecord returns one record by ID.
	GetRecord(ctx context.Context, id int64) (*models.ImageRecord, error)
	// CountImages returns the number of stored records.
	CountImages(ctx context.Context) (int64, error)

	Close() error
}
