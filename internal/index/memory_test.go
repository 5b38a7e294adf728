package index

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/curio/internal/models"
)

func testRecords() []*models.ImageRecord {
	return []*models.ImageRecord{
		{ID: 3, Embedding: []float32{0, 0, 1}, Metadata: map[string]interface{}{"artist": "vermeer", "year": 1665.0}},
		{ID: 1, Embedding: []float32{1, 0, 0}, Metadata: map[string]interface{}{"artist": "rembrandt", "year": 1642.0}},
		{ID: 2, Embedding: []float32{0, 1, 0}, Metadata: map[string]interface{}{"artist": "vermeer", "year": 1658.0}},
	}
}

func TestBuild(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Dimensions() != 3 {
		t.Errorf("Expected dimensions 3, got %d", idx.Dimensions())
	}
	if idx.Size() != 3 {
		t.Errorf("Expected size 3, got %d", idx.Size())
	}
	// Records sorted by ascending ID regardless of input order
	recs := idx.Records()
	for i := 1; i < len(recs); i++ {
		if recs[i-1].ID >= recs[i].ID {
			t.Errorf("Records not sorted by ID: %d before %d", recs[i-1].ID, recs[i].ID)
		}
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	recs := testRecords()
	recs = append(recs, &models.ImageRecord{ID: 9, Embedding: []float32{1, 0}})
	_, err := Build(recs)
	if err == nil {
		t.Fatal("Expected error for mismatched dimensions")
	}
	dimErr, ok := err.(*models.DimensionError)
	if !ok {
		t.Fatalf("Expected *models.DimensionError, got %T", err)
	}
	if dimErr.ID != 9 || dimErr.Want != 3 || dimErr.Got != 2 {
		t.Errorf("Unexpected error fields: %+v", dimErr)
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	recs := testRecords()
	recs = append(recs, &models.ImageRecord{ID: 1, Embedding: []float32{0, 0, 1}})
	if _, err := Build(recs); err == nil {
		t.Fatal("Expected error for duplicate ID")
	}
}

func TestSimilarities(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	sims := make(map[int64]float64)
	err = idx.Similarities(context.Background(), []float32{0, 0, 1}, func(rec *models.ImageRecord, sim float64) bool {
		sims[rec.ID] = sim
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sims) != 3 {
		t.Fatalf("Expected 3 similarities, got %d", len(sims))
	}
	if math.Abs(sims[3]-1.0) > 1e-9 {
		t.Errorf("Expected similarity 1.0 for identical embedding, got %v", sims[3])
	}
	if sims[1] != 0 || sims[2] != 0 {
		t.Errorf("Expected 0 similarity for orthogonal embeddings, got %v and %v", sims[1], sims[2])
	}
}

func TestSimilarities_QueryDimensionMismatch(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Similarities(context.Background(), []float32{1, 0}, func(*models.ImageRecord, float64) bool { return true })
	if err == nil {
		t.Fatal("Expected error for query dimension mismatch")
	}
	if _, ok := err.(*models.DimensionError); !ok {
		t.Errorf("Expected *models.DimensionError, got %T", err)
	}
}

func TestSimilarities_EarlyStop(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	visited := 0
	err = idx.Similarities(context.Background(), []float32{1, 0, 0}, func(*models.ImageRecord, float64) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Errorf("Expected 1 visit after early stop, got %d", visited)
	}
}

func TestFilter(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	ids := idx.Filter(func(rec *models.ImageRecord) bool {
		return rec.MetaString("artist") == "vermeer"
	})
	if len(ids) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(ids))
	}
	for _, want := range []int64{2, 3} {
		if _, ok := ids[want]; !ok {
			t.Errorf("Expected id %d in filter result", want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	idx, err := Build(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "index.bin")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("Expected loaded index, got nil")
	}
	if loaded.Size() != idx.Size() || loaded.Dimensions() != idx.Dimensions() {
		t.Fatalf("Loaded index shape mismatch: size %d dims %d", loaded.Size(), loaded.Dimensions())
	}
	rec, ok := loaded.Record(3)
	if !ok {
		t.Fatal("Expected record 3 in loaded index")
	}
	if rec.MetaString("artist") != "vermeer" {
		t.Errorf("Expected metadata to survive round-trip, got %v", rec.Metadata)
	}
	for i, v := range rec.Embedding {
		orig, _ := idx.Record(3)
		if v != orig.Embedding[i] {
			t.Errorf("Embedding changed at %d: %v != %v", i, v, orig.Embedding[i])
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatal("Expected nil index for missing file")
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New("annoy", testRecords()); err == nil {
		t.Fatal("Expected error for unknown index type")
	}
}
