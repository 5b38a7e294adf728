// Package meta provides a Bleve index over image metadata so filter values can
// be resolved by free-text match (artist names, titles) in addition to the
// exact predicates the embedding index evaluates itself.
package meta

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/curio/internal/models"
)

// Index is a Bleve-backed text index over metadata fields, keyed by image ID.
type Index struct {
	index bleve.Index
}

// New creates or opens a Bleve metadata index at path. An empty path builds an
// in-memory index (used for tests and ephemeral datasets). If the path already
// exists the index is opened and reused; remove the directory to force a full
// re-index after a mapping change.
func New(path string) (*Index, error) {
	im := bleve.NewIndexMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query for an
	// artist name matches the exact word.
	im.DefaultAnalyzer = standard.Name

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory metadata index: %w", err)
		}
		return &Index{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open metadata index: %w", openErr)
		}
		return &Index{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata index: %w", err)
	}
	return &Index{index: index}, nil
}

// IndexRecord indexes one image's metadata.
func (m *Index) IndexRecord(ctx context.Context, rec *models.ImageRecord) error {
	if len(rec.Metadata) == 0 {
		return nil
	}
	return m.index.Index(strconv.FormatInt(rec.ID, 10), rec.Metadata)
}

// IndexAll indexes a whole dataset in one batch.
func (m *Index) IndexAll(ctx context.Context, records []*models.ImageRecord) error {
	batch := m.index.NewBatch()
	for _, rec := range records {
		if len(rec.Metadata) == 0 {
			continue
		}
		if err := batch.Index(strconv.FormatInt(rec.ID, 10), rec.Metadata); err != nil {
			return fmt.Errorf("batch index id %d: %w", rec.ID, err)
		}
	}
	return m.index.Batch(batch)
}

// Match returns the IDs whose field matches the given text. limit caps the
// candidate set; pass the dataset size to collect every match.
func (m *Index) Match(ctx context.Context, field, text string, limit int) (map[int64]struct{}, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := bleve.NewMatchQuery(text)
	if field != "" {
		q.SetField(field)
	}
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("metadata match failed: %w", err)
	}
	ids := make(map[int64]struct{}, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Reset replaces the index contents with records, used when the dataset is
// swapped in place. Stale documents from the previous dataset are deleted
// first so removed images stop matching.
func (m *Index) Reset(ctx context.Context, records []*models.ImageRecord) error {
	const page = 1000
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), page, 0, false)
		res, err := m.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("list stale documents: %w", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		batch := m.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := m.index.Batch(batch); err != nil {
			return fmt.Errorf("delete stale documents: %w", err)
		}
	}
	return m.IndexAll(ctx, records)
}

// Count returns the number of indexed records.
func (m *Index) Count() (uint64, error) {
	return m.index.DocCount()
}

// Close closes the underlying Bleve index.
func (m *Index) Close() error {
	return m.index.Close()
}
