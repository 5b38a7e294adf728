// Package search provides the session-adaptive search engine: the two entry
// points a front end needs (Search and Feedback) plus dataset lifecycle.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/curio/internal/adapter"
	"github.com/hyperjump/curio/internal/config"
	"github.com/hyperjump/curio/internal/encoder"
	"github.com/hyperjump/curio/internal/index"
	"github.com/hyperjump/curio/internal/meta"
	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/internal/ranking"
)

// Engine wires the encoder, embedding index, session adapter, and ranker.
// Search is a pure read path over snapshots; Feedback appends to the session;
// SetDataset atomically swaps the index so an in-flight search completes
// against either the old or the new dataset, never a mix.
type Engine struct {
	encoder encoder.Encoder
	adapter *adapter.Adapter
	config  *config.SearchConfig
	logger  *zap.Logger

	mu    sync.RWMutex
	index index.Index
	meta  *meta.Index // optional; nil disables match filters
}

// NewEngine creates an engine with the given dependencies. metaIndex may be
// nil when no metadata text matching is wanted.
func NewEngine(
	idx index.Index,
	enc encoder.Encoder,
	adp *adapter.Adapter,
	metaIndex *meta.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		encoder: enc,
		adapter: adp,
		config:  cfg,
		logger:  logger,
		index:   idx,
		meta:    metaIndex,
	}
}

// snapshot returns the index and metadata index to use for one search pass.
func (e *Engine) snapshot() (index.Index, *meta.Index) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index, e.meta
}

// Search resolves the query to an embedding, compiles the filters, and ranks
// all candidates by adapted similarity. An empty result set is a valid
// outcome, not an error.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Limit > e.config.MaxLimit {
		req.Limit = e.config.MaxLimit
	}

	idx, metaIndex := e.snapshot()
	if idx == nil {
		return nil, fmt.Errorf("no dataset loaded")
	}

	queryVec, err := encoder.Encode(ctx, e.encoder, req)
	if err != nil {
		return nil, err
	}

	pred, err := e.compileFilters(ctx, idx, metaIndex, req)
	if err != nil {
		return nil, err
	}

	snap := e.adapter.Snapshot()
	results, total, err := ranking.Rank(ctx, idx, queryVec, snap, pred, req.Limit)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search complete",
		zap.String("query", req.Query),
		zap.String("kind", string(req.Kind())),
		zap.Int("total", total),
		zap.Int("returned", len(results)),
		zap.Int("feedback_events", snap.Len()),
	)
	return &models.SearchResponse{
		Results:       results,
		Total:         total,
		QueryTime:     time.Since(startTime).Milliseconds(),
		Query:         req.Query,
		Kind:          req.Kind(),
		SessionID:     snap.SessionID(),
		FeedbackCount: snap.Len(),
	}, nil
}

// compileFilters builds one predicate from the request: metadata predicates,
// match filters resolved against the metadata index, and canvas exclusions.
func (e *Engine) compileFilters(ctx context.Context, idx index.Index, metaIndex *meta.Index, req *models.SearchRequest) (index.Predicate, error) {
	preds := []index.Predicate{index.Exclude(req.ExcludeIDs)}
	for _, f := range req.Filters {
		if f.Op == models.OpMatch {
			if metaIndex == nil {
				return nil, fmt.Errorf("filter %q: match filters require a metadata index", f.Field)
			}
			text, ok := f.Value.(string)
			if !ok {
				return nil, fmt.Errorf("filter %q: match value must be a string", f.Field)
			}
			ids, err := metaIndex.Match(ctx, f.Field, text, idx.Size())
			if err != nil {
				return nil, err
			}
			preds = append(preds, index.IDSet(ids))
			continue
		}
		pred, err := index.Compile(f)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return index.And(preds...), nil
}

// Feedback records one curator action: looks up the image's embedding and
// appends a feedback event to the session. The event carries the frozen
// embedding, so a later dataset swap cannot retroactively change recorded
// feedback.
func (e *Engine) Feedback(imageID int64, polarity int, weight float64) error {
	idx, _ := e.snapshot()
	if idx == nil {
		return fmt.Errorf("no dataset loaded")
	}
	rec, ok := idx.Record(imageID)
	if !ok {
		return fmt.Errorf("unknown image id %d", imageID)
	}
	if err := e.adapter.Record(rec.Embedding, polarity, weight); err != nil {
		return fmt.Errorf("record feedback for image %d: %w", imageID, err)
	}
	e.logger.Debug("feedback recorded",
		zap.Int64("image_id", imageID),
		zap.Int("polarity", polarity),
		zap.Float64("weight", weight),
	)
	return nil
}

// ResetSession clears the feedback session and returns the new session ID.
func (e *Engine) ResetSession() string {
	id := e.adapter.Reset()
	e.logger.Info("session reset", zap.String("session_id", id))
	return id
}

// SetDataset atomically replaces the active index (and metadata index, which
// may be nil) and resets the session: feedback is meaningful only relative to
// the dataset it was captured against.
func (e *Engine) SetDataset(idx index.Index, metaIndex *meta.Index) {
	e.mu.Lock()
	e.index = idx
	e.meta = metaIndex
	e.mu.Unlock()

	// The old index is not closed here: an in-flight search may still be
	// reading it. It is dropped once those readers finish.
	e.adapter.Reset()
	e.logger.Info("dataset replaced",
		zap.Int("images", idx.Size()),
		zap.Int("dimensions", idx.Dimensions()),
	)
}

// IndexSize returns the number of images in the active dataset (0 when none).
func (e *Engine) IndexSize() int {
	idx, _ := e.snapshot()
	if idx == nil {
		return 0
	}
	return idx.Size()
}

// Dimensions returns the active embedding dimension (0 when no dataset).
func (e *Engine) Dimensions() int {
	idx, _ := e.snapshot()
	if idx == nil {
		return 0
	}
	return idx.Dimensions()
}

// SessionID returns the current feedback session ID.
func (e *Engine) SessionID() string {
	return e.adapter.SessionID()
}

// FeedbackCount returns the number of events in the current session.
func (e *Engine) FeedbackCount() int {
	return e.adapter.Len()
}
