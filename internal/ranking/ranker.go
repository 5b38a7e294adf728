// Package ranking orders filtered candidates by session-adapted similarity.
package ranking

import (
	"context"
	"sort"

	"github.com/hyperjump/curio/internal/adapter"
	"github.com/hyperjump/curio/internal/index"
	"github.com/hyperjump/curio/internal/models"
)

// Rank scores every record satisfying pred against the query embedding, adds
// the snapshot's correction to obtain the adapted similarity, and returns the
// top-k results sorted descending by adapted similarity with ties broken by
// ascending ID. A pure read path: neither the index nor the snapshot is
// mutated, so repeated calls with the same inputs produce identical output.
// An empty result is valid, not an error.
func Rank(ctx context.Context, idx index.Index, queryVec []float32, snap adapter.Snapshot, pred index.Predicate, topK int) ([]*models.ScoredResult, int, error) {
	if pred == nil {
		pred = index.All()
	}
	var scored []*models.ScoredResult
	err := idx.Similarities(ctx, queryVec, func(rec *models.ImageRecord, sim float64) bool {
		if !pred(rec) {
			return true
		}
		scored = append(scored, &models.ScoredResult{
			ImageID:           rec.ID,
			Image:             rec,
			BaseSimilarity:    sim,
			AdaptedSimilarity: sim + snap.Correction(rec.Embedding),
		})
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	total := len(scored)

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].AdaptedSimilarity != scored[j].AdaptedSimilarity {
			return scored[i].AdaptedSimilarity > scored[j].AdaptedSimilarity
		}
		return scored[i].ImageID < scored[j].ImageID
	})
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	for i, r := range scored {
		r.Rank = i + 1
	}
	return scored, total, nil
}
