// Package encoder maps text and image queries into the index's embedding
// space using a frozen pretrained vision-language encoder.
package encoder

import (
	"context"
	"fmt"

	"github.com/hyperjump/curio/internal/models"
)

// Encoder produces L2-normalized embeddings of a fixed dimension for text and
// image queries. Implementations are stateless across calls; the underlying
// model is loaded once and treated as read-only.
type Encoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, data []byte) ([]float32, error)
	Dimensions() int
	Close() error
}

// EncodingError reports malformed query input (empty text, undecodable image).
// The operation is aborted with no partial state change.
type EncodingError struct {
	Kind   models.QueryKind
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot encode %s query: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot encode %s query: %s", e.Kind, e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encode resolves a search request to a single query embedding: the image
// tower when image bytes are present, the text tower otherwise.
func Encode(ctx context.Context, enc Encoder, req *models.SearchRequest) ([]float32, error) {
	if req.Kind() == models.QueryImage {
		return enc.EncodeImage(ctx, req.ImageData)
	}
	return enc.EncodeText(ctx, req.Query)
}
