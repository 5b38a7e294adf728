package search

import (
	"context"
	"testing"

	"github.com/hyperjump/curio/internal/adapter"
	"github.com/hyperjump/curio/internal/config"
	"github.com/hyperjump/curio/internal/encoder"
	"github.com/hyperjump/curio/internal/index"
	"github.com/hyperjump/curio/internal/meta"
	"github.com/hyperjump/curio/internal/models"
)

const testDims = 32

// newTestEngine builds an engine over five images whose embeddings come from
// the mock encoder, so text queries land exactly on known records.
func newTestEngine(t *testing.T, withMeta bool) (*Engine, []string) {
	t.Helper()
	enc := encoder.NewMockEncoder(testDims)
	ctx := context.Background()

	captions := []string{
		"stormy seascape with ships",
		"calm harbor at dawn",
		"portrait of a young woman",
		"winter landscape with skaters",
		"still life with flowers",
	}
	artists := []string{"backhuysen", "backhuysen", "vermeer", "avercamp", "bosschaert"}
	records := make([]*models.ImageRecord, len(captions))
	for i, caption := range captions {
		vec, err := enc.EncodeText(ctx, caption)
		if err != nil {
			t.Fatal(err)
		}
		records[i] = &models.ImageRecord{
			ID:        int64(i),
			Embedding: vec,
			Metadata:  map[string]interface{}{"artist": artists[i]},
		}
	}
	idx, err := index.Build(records)
	if err != nil {
		t.Fatal(err)
	}

	var metaIndex *meta.Index
	if withMeta {
		metaIndex, err = meta.New("")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = metaIndex.Close() })
		if err := metaIndex.IndexAll(ctx, records); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.SearchConfig{DefaultLimit: 10, MaxLimit: 100}
	adp := adapter.New(testDims, adapter.Params{Bandwidth: 0.6})
	return NewEngine(idx, enc, adp, metaIndex, cfg, nil), captions
}

func TestSearch_TextQuery(t *testing.T) {
	engine, captions := newTestEngine(t, false)

	resp, err := engine.Search(context.Background(), &models.SearchRequest{Query: captions[2], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 5 || len(resp.Results) != 5 {
		t.Fatalf("Expected 5 results, got %d (total %d)", len(resp.Results), resp.Total)
	}
	if resp.Results[0].ImageID != 2 {
		t.Errorf("Expected image 2 first for its own caption, got %d", resp.Results[0].ImageID)
	}
	if resp.Results[0].AdaptedSimilarity < 0.999 {
		t.Errorf("Expected near-1.0 similarity, got %v", resp.Results[0].AdaptedSimilarity)
	}
	if resp.Kind != models.QueryText {
		t.Errorf("Expected text kind, got %s", resp.Kind)
	}
	if resp.FeedbackCount != 0 {
		t.Errorf("Expected 0 feedback events, got %d", resp.FeedbackCount)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	if _, err := engine.Search(context.Background(), &models.SearchRequest{}); err == nil {
		t.Fatal("Expected error for empty query")
	}
}

func TestSearch_FilterAndExclude(t *testing.T) {
	engine, captions := newTestEngine(t, false)
	ctx := context.Background()

	resp, err := engine.Search(ctx, &models.SearchRequest{
		Query:   captions[0],
		Filters: []models.Filter{{Field: "artist", Op: models.OpEq, Value: "backhuysen"}},
		Limit:   5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("Expected 2 candidates for artist filter, got %d", resp.Total)
	}
	for _, r := range resp.Results {
		if r.ImageID != 0 && r.ImageID != 1 {
			t.Errorf("Excluded record %d returned", r.ImageID)
		}
	}

	resp, err = engine.Search(ctx, &models.SearchRequest{
		Query:      captions[0],
		ExcludeIDs: []int64{0},
		Limit:      5,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.ImageID == 0 {
			t.Error("Excluded image 0 returned")
		}
	}
}

func TestSearch_MatchFilter(t *testing.T) {
	engine, captions := newTestEngine(t, true)

	resp, err := engine.Search(context.Background(), &models.SearchRequest{
		Query:   captions[3],
		Filters: []models.Filter{{Field: "artist", Op: models.OpMatch, Value: "avercamp"}},
		Limit:   5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ImageID != 3 {
		t.Fatalf("Expected only image 3 for avercamp match, got %+v", resp.Results)
	}
}

func TestSearch_MatchFilterWithoutMetaIndex(t *testing.T) {
	engine, captions := newTestEngine(t, false)
	_, err := engine.Search(context.Background(), &models.SearchRequest{
		Query:   captions[0],
		Filters: []models.Filter{{Field: "artist", Op: models.OpMatch, Value: "avercamp"}},
	})
	if err == nil {
		t.Fatal("Expected error when match filter used without metadata index")
	}
}

func TestFeedback_ShiftsRanking(t *testing.T) {
	engine, captions := newTestEngine(t, false)
	ctx := context.Background()

	before, err := engine.Search(ctx, &models.SearchRequest{Query: captions[0], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	var before1 float64
	for _, r := range before.Results {
		if r.ImageID == 1 {
			before1 = r.AdaptedSimilarity
		}
	}

	if err := engine.Feedback(1, models.PolarityPositive, 1); err != nil {
		t.Fatal(err)
	}
	after, err := engine.Search(ctx, &models.SearchRequest{Query: captions[0], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if after.FeedbackCount != 1 {
		t.Errorf("Expected 1 feedback event, got %d", after.FeedbackCount)
	}
	var after1 float64
	for _, r := range after.Results {
		if r.ImageID == 1 {
			after1 = r.AdaptedSimilarity
		}
	}
	if after1 <= before1 {
		t.Errorf("Expected image 1's adapted score to increase: %v -> %v", before1, after1)
	}
}

func TestFeedback_UnknownImage(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	if err := engine.Feedback(99, models.PolarityPositive, 1); err == nil {
		t.Fatal("Expected error for unknown image id")
	}
}

func TestResetSession(t *testing.T) {
	engine, captions := newTestEngine(t, false)
	ctx := context.Background()

	if err := engine.Feedback(0, models.PolarityPositive, 1); err != nil {
		t.Fatal(err)
	}
	oldID := engine.SessionID()
	newID := engine.ResetSession()
	if newID == oldID {
		t.Error("Expected a new session ID")
	}
	if engine.FeedbackCount() != 0 {
		t.Errorf("Expected 0 feedback events after reset, got %d", engine.FeedbackCount())
	}
	resp, err := engine.Search(ctx, &models.SearchRequest{Query: captions[0], Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.AdaptedSimilarity != r.BaseSimilarity {
			t.Errorf("Image %d: expected passthrough after reset", r.ImageID)
		}
	}
}

func TestSetDataset_ResetsSession(t *testing.T) {
	engine, _ := newTestEngine(t, false)
	if err := engine.Feedback(0, models.PolarityPositive, 1); err != nil {
		t.Fatal(err)
	}

	enc := encoder.NewMockEncoder(testDims)
	vec, err := enc.EncodeText(context.Background(), "replacement image")
	if err != nil {
		t.Fatal(err)
	}
	idx, err := index.Build([]*models.ImageRecord{{ID: 0, Embedding: vec}})
	if err != nil {
		t.Fatal(err)
	}
	engine.SetDataset(idx, nil)

	if engine.FeedbackCount() != 0 {
		t.Errorf("Expected feedback cleared on dataset change, got %d events", engine.FeedbackCount())
	}
	if engine.IndexSize() != 1 {
		t.Errorf("Expected new dataset active, size %d", engine.IndexSize())
	}
}
