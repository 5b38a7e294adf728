// Package adapter accumulates session feedback and computes a bounded, local
// correction to similarity scores. The shared index and encoder are never
// touched; discarding the adapter discards the adaptation.
package adapter

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/curio/internal/models"
)

// Adapter owns the session's feedback state: an append-only arena of
// FeedbackEvent plus a monotonic sequence counter. Record appends under the
// write lock; Snapshot returns an immutable view (a prefix of the arena, not a
// copy) so a ranking pass sees a consistent feedback set even while new
// feedback arrives.
type Adapter struct {
	dimensions int
	params     Params

	mu        sync.RWMutex
	events    []models.FeedbackEvent
	seq       uint64
	sessionID string
}

// New creates an adapter for embeddings of the given dimension.
func New(dimensions int, params Params) *Adapter {
	params.applyDefaults()
	return &Adapter{
		dimensions: dimensions,
		params:     params,
		sessionID:  uuid.NewString(),
	}
}

// Dimensions returns the embedding dimension the adapter accepts.
func (a *Adapter) Dimensions() int {
	return a.dimensions
}

// SessionID returns the current session identifier. Reset issues a new one.
func (a *Adapter) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Record appends a feedback event. The embedding must match the adapter's
// dimension; polarity must be +1 or -1; negative weights are rejected. The
// embedding is copied so callers may reuse their buffer.
func (a *Adapter) Record(embedding []float32, polarity int, weight float64) error {
	if len(embedding) != a.dimensions {
		return models.NewDimensionError(-1, a.dimensions, len(embedding))
	}
	if polarity != models.PolarityPositive && polarity != models.PolarityNegative {
		return errBadPolarity(polarity)
	}
	if weight < 0 {
		return errBadWeight(weight)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.events = append(a.events, models.FeedbackEvent{
		Embedding: vec,
		Polarity:  polarity,
		Weight:    weight,
		Seq:       a.seq,
	})
	return nil
}

// Reset clears the session state and starts a new session. Used when switching
// datasets, since feedback is meaningful only relative to the dataset it was
// captured against. Returns the new session ID.
func (a *Adapter) Reset() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
	a.seq = 0
	a.sessionID = uuid.NewString()
	return a.sessionID
}

// Len returns the number of recorded feedback events.
func (a *Adapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

// Snapshot returns a consistent view of the feedback state for one ranking
// pass. The events slice is a prefix of the append-only arena: appends after
// the snapshot never mutate entries the snapshot can see, so no copy is made.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		events:     a.events[:len(a.events):len(a.events)],
		latest:     a.seq,
		dimensions: a.dimensions,
		params:     a.params,
		sessionID:  a.sessionID,
	}
}

// Correction computes the correction for x against the current state. Prefer
// taking a Snapshot when scoring many candidates in one pass.
func (a *Adapter) Correction(x []float32) float64 {
	return a.Snapshot().Correction(x)
}

// Snapshot is an immutable view of the session state at one point in time.
type Snapshot struct {
	events     []models.FeedbackEvent
	latest     uint64
	dimensions int
	params     Params
	sessionID  string
}

// Len returns the number of events in the snapshot.
func (s Snapshot) Len() int {
	return len(s.events)
}

// SessionID returns the session the snapshot was taken from.
func (s Snapshot) SessionID() string {
	return s.sessionID
}

// Correction returns the bounded local correction for a candidate embedding:
//
//	clamp(lambda * sum_i polarity_i * weight_i * decay(age_i) * K(x, e_i))
//
// where K is a Gaussian kernel on cosine distance, so feedback only influences
// candidates near the feedback point. An empty snapshot or a vector of the
// wrong dimension yields 0 (pure passthrough to the base similarity).
func (s Snapshot) Correction(x []float32) float64 {
	if len(s.events) == 0 || len(x) != s.dimensions {
		return 0
	}
	var sum float64
	for i := range s.events {
		ev := &s.events[i]
		k := gaussianKernel(x, ev.Embedding, s.params.Bandwidth)
		if k == 0 {
			continue
		}
		sum += float64(ev.Polarity) * ev.Weight * recencyDecay(s.latest-ev.Seq, s.params.HalfLife) * k
	}
	return clamp(s.params.Lambda*sum, s.params.Clamp)
}
