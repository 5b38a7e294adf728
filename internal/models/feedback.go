package models

// Feedback polarity values.
const (
	PolarityPositive = 1
	PolarityNegative = -1
)

// FeedbackEvent is one point of curator feedback in embedding space: nearby
// candidates should be pulled toward (polarity +1) or pushed away from
// (polarity -1) the query ranking. Events are append-only; Seq is a monotonic
// counter assigned at record time and drives recency weighting.
type FeedbackEvent struct {
	Embedding []float32
	Polarity  int
	Weight    float64
	Seq       uint64
}
