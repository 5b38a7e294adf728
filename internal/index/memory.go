// Package index provides an in-memory exact brute-force embedding index.
package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/curio/internal/models"
)

// MemoryIndex is an exact brute-force cosine similarity index. Deterministic
// and dimension-order independent; suitable for collections up to a few
// hundred thousand images. Records are stored sorted by ascending ID and never
// mutated after construction, so read access needs no locking.
type MemoryIndex struct {
	dimensions int
	records    []*models.ImageRecord
	byID       map[int64]*models.ImageRecord
}

// Build constructs an index from records. Embeddings must all share the same
// dimension; the first record fixes D and any mismatch fails with a
// DimensionError naming the offending ID. Duplicate IDs are rejected.
func Build(records []*models.ImageRecord) (*MemoryIndex, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot build index from empty dataset")
	}
	dims := len(records[0].Embedding)
	if dims == 0 {
		return nil, fmt.Errorf("record %d has empty embedding", records[0].ID)
	}
	byID := make(map[int64]*models.ImageRecord, len(records))
	sorted := make([]*models.ImageRecord, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != dims {
			return nil, models.NewDimensionError(rec.ID, dims, len(rec.Embedding))
		}
		if _, dup := byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate image id %d", rec.ID)
		}
		byID[rec.ID] = rec
		sorted = append(sorted, rec)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &MemoryIndex{dimensions: dims, records: sorted, byID: byID}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(TypeMemory)
}

// Dimensions returns the embedding dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Size returns the number of records.
func (m *MemoryIndex) Size() int {
	return len(m.records)
}

// Record returns the record with the given ID.
func (m *MemoryIndex) Record(id int64) (*models.ImageRecord, bool) {
	rec, ok := m.byID[id]
	return rec, ok
}

// Records returns all records in ascending ID order. Callers must not mutate.
func (m *MemoryIndex) Records() []*models.ImageRecord {
	return m.records
}

// Similarities streams cosine similarity of query against every record in
// ascending ID order. Assumes normalized vectors, so the dot product is the
// cosine similarity. Checks ctx between records for early cancellation.
func (m *MemoryIndex) Similarities(ctx context.Context, query []float32, fn func(rec *models.ImageRecord, sim float64) bool) error {
	if len(query) != m.dimensions {
		return models.NewDimensionError(-1, m.dimensions, len(query))
	}
	for _, rec := range m.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(rec, Dot(query, rec.Embedding)) {
			return nil
		}
	}
	return nil
}

// Filter returns the IDs of all records satisfying pred.
func (m *MemoryIndex) Filter(pred func(*models.ImageRecord) bool) map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, rec := range m.records {
		if pred(rec) {
			out[rec.ID] = struct{}{}
		}
	}
	return out
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (4), n (4), then per record: id (8), metadata JSON length (4),
// metadata JSON (path stored under the "path" key), vector (dimensions*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.records))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, rec := range m.records {
		if err := binary.Write(f, binary.LittleEndian, rec.ID); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		meta := rec.Metadata
		if rec.Path != "" {
			meta = make(map[string]interface{}, len(rec.Metadata)+1)
			for k, v := range rec.Metadata {
				meta[k] = v
			}
			meta["path"] = rec.Path
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata for id %d: %w", rec.ID, err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(metaJSON))); err != nil {
			return fmt.Errorf("write metadata len: %w", err)
		}
		if _, err := f.Write(metaJSON); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(rec.Embedding)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads an index previously written by Save. Returns (nil, nil) when the
// file does not exist so callers can fall back to a fresh import.
func Load(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dims, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	records := make([]*models.ImageRecord, 0, n)
	vecBuf := make([]byte, dims*4)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(f, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		var metaLen uint32
		if err := binary.Read(f, binary.LittleEndian, &metaLen); err != nil {
			return nil, fmt.Errorf("read metadata len: %w", err)
		}
		metaJSON := make([]byte, metaLen)
		if _, err := io.ReadFull(f, metaJSON); err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]interface{}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for id %d: %w", id, err)
			}
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		rec := &models.ImageRecord{ID: id, Metadata: meta, Embedding: bytesToFloat32Slice(vecBuf)}
		if meta != nil {
			if p, ok := meta["path"].(string); ok {
				rec.Path = p
				delete(meta, "path")
			}
		}
		records = append(records, rec)
	}
	return Build(records)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

// Dot returns the inner product of two vectors (cosine similarity for
// normalized vectors). Returns 0 on length mismatch.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// CosineDistance returns 1 - Dot(a, b), clamped to [0, 2].
func CosineDistance(a, b []float32) float64 {
	d := 1 - Dot(a, b)
	return math.Max(0, math.Min(2, d))
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
