// Package models defines core data structures for images, queries, feedback, and search results.
package models

// ImageRecord represents one image in the active dataset: a stable integer ID,
// its L2-normalized embedding, and open-schema metadata. Records are created at
// dataset build time and never mutated afterwards.
type ImageRecord struct {
	ID        int64                  `json:"id" db:"id"`
	Path      string                 `json:"path,omitempty" db:"path"`
	Embedding []float32              `json:"-" db:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
}

// Dimensions returns the embedding length.
func (r *ImageRecord) Dimensions() int {
	return len(r.Embedding)
}

// MetaString returns the metadata value for field as a string, or "" when absent.
func (r *ImageRecord) MetaString(field string) string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
