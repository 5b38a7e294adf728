package models

// ScoredResult is a single search hit. BaseSimilarity is the raw cosine
// similarity against the frozen embedding; AdaptedSimilarity additionally
// carries the session correction. Results are produced fresh per query and
// never persisted.
type ScoredResult struct {
	ImageID           int64        `json:"image_id"`
	Image             *ImageRecord `json:"image,omitempty"`
	BaseSimilarity    float64      `json:"base_similarity"`
	AdaptedSimilarity float64      `json:"adapted_similarity"`
	Rank              int          `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results []*ScoredResult `json:"results"`
	// Total is the number of candidates that satisfied the filters, before truncation.
	Total     int       `json:"total"`
	QueryTime int64     `json:"query_time_ms"`
	Query     string    `json:"query"`
	Kind      QueryKind `json:"kind"`
	// SessionID identifies the feedback session the corrections came from.
	SessionID string `json:"session_id,omitempty"`
	// FeedbackCount is the number of feedback events applied during ranking.
	FeedbackCount int `json:"feedback_count"`
}
