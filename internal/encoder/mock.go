package encoder

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/pkg/utils"
)

// MockEncoder is a deterministic encoder for tests. The same text or image
// bytes always produce the same unit vector, and it enforces the same input
// validation as the real encoder.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the
// given dimensions.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEncoder{dimensions: dimensions}
}

// EncodeText returns a deterministic embedding based on the text hash.
func (e *MockEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &EncodingError{Kind: models.QueryText, Reason: "empty text"}
	}
	return e.fromSeed(HashString(text)), nil
}

// EncodeImage returns a deterministic embedding based on the decoded image
// bounds and a byte hash. Fails like the real encoder on undecodable input.
func (e *MockEncoder) EncodeImage(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, &EncodingError{Kind: models.QueryImage, Reason: "empty image data"}
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, &EncodingError{Kind: models.QueryImage, Reason: "undecodable image", Err: err}
	}
	h := 0
	for _, b := range data {
		h = 31*h + int(b)
	}
	if h < 0 {
		h = -h
	}
	return e.fromSeed(h), nil
}

func (e *MockEncoder) fromSeed(seed int) []float32 {
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
