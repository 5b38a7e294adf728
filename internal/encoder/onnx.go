//go:build cgo
// +build cgo

// Package encoder provides ONNX-based query encoding (requires CGO and the
// onnxruntime library).
package encoder

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/pkg/utils"
)

// ONNXEncoder runs the two towers of a CLIP-style model exported to ONNX: a
// text model taking token IDs and an image model taking pixel tensors. Both
// produce embeddings in the same space, L2-normalized here. Requires CGO and
// the onnxruntime shared library.
type ONNXEncoder struct {
	dimensions int
	maxTokens  int
	cache      *embeddingCache
	tokenizer  Tokenizer

	textSession  *ort.AdvancedSession
	textInput    *ort.Tensor[int64]
	textOutput   *ort.Tensor[float32]
	textMu       sync.Mutex
	imageSession *ort.AdvancedSession
	imageInput   *ort.Tensor[float32]
	imageOutput  *ort.Tensor[float32]
	imageMu      sync.Mutex
}

// NewONNXEncoder creates an encoder from the text and image model files.
// InitializeEnvironment is called if not already done.
func NewONNXEncoder(textModelPath, imageModelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	e := &ONNXEncoder{
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      newEmbeddingCache(cacheSize),
		tokenizer:  &SimpleTokenizer{},
	}

	var err error
	e.textInput, err = ort.NewTensor(ort.NewShape(1, int64(maxTokens)), make([]int64, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	e.textOutput, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.textSession, err = ort.NewAdvancedSession(
		textModelPath,
		[]string{"input_ids"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.textInput},
		[]ort.ArbitraryTensor{e.textOutput},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}

	pixels := 3 * clipImageSize * clipImageSize
	e.imageInput, err = ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), make([]float32, pixels))
	if err != nil {
		e.destroySessions()
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	e.imageOutput, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroySessions()
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.imageSession, err = ort.NewAdvancedSession(
		imageModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.imageInput},
		[]ort.ArbitraryTensor{e.imageOutput},
		nil,
	)
	if err != nil {
		e.destroySessions()
		e.destroyTensors()
		return nil, fmt.Errorf("failed to create image session: %w", err)
	}
	return e, nil
}

// EncodeText returns the text embedding, using the cache when available.
func (e *ONNXEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &EncodingError{Kind: models.QueryText, Reason: "empty text"}
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.textMu.Lock()
	defer e.textMu.Unlock()

	copy(e.textInput.GetData(), e.tokenizer.Tokenize(text, e.maxTokens))
	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.textOutput.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EncodeImage decodes, preprocesses, and embeds the image bytes.
func (e *ONNXEncoder) EncodeImage(ctx context.Context, data []byte) ([]float32, error) {
	tensor, err := preprocessImage(data)
	if err != nil {
		return nil, err
	}

	e.imageMu.Lock()
	defer e.imageMu.Unlock()

	copy(e.imageInput.GetData(), tensor)
	if err := e.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("image inference failed: %w", err)
	}
	embedding := make([]float32, e.dimensions)
	copy(embedding, e.imageOutput.GetData()[:e.dimensions])
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEncoder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX sessions and tensors.
func (e *ONNXEncoder) Close() error {
	e.destroySessions()
	e.destroyTensors()
	return nil
}

func (e *ONNXEncoder) destroySessions() {
	if e.textSession != nil {
		e.textSession.Destroy()
		e.textSession = nil
	}
	if e.imageSession != nil {
		e.imageSession.Destroy()
		e.imageSession = nil
	}
}

func (e *ONNXEncoder) destroyTensors() {
	for _, t := range []*ort.Tensor[int64]{e.textInput} {
		if t != nil {
			t.Destroy()
		}
	}
	for _, t := range []*ort.Tensor[float32]{e.textOutput, e.imageInput, e.imageOutput} {
		if t != nil {
			t.Destroy()
		}
	}
	e.textInput = nil
	e.textOutput = nil
	e.imageInput = nil
	e.imageOutput = nil
}
