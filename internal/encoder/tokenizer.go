package encoder

import "strings"

// CLIP special token IDs and vocabulary size.
const (
	tokenStart = 49406 // <|startoftext|>
	tokenEnd   = 49407 // <|endoftext|>
	vocabSize  = 49408
)

// Tokenizer produces padded token IDs for the text tower.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) []int64
}

// SimpleTokenizer is a lowercase word-split tokenizer with hash-based token
// IDs, bracketed by the CLIP start/end tokens. A fallback for models exported
// with the tokenizer fused in, and for tests.
type SimpleTokenizer struct{}

// Tokenize splits text into lowercase words and produces padded token IDs up
// to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) []int64 {
	if maxTokens <= 0 {
		maxTokens = 77
	}
	ids := make([]int64, maxTokens)
	ids[0] = tokenStart
	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		ids[pos] = int64(HashString(word) % (vocabSize - 2))
		pos++
	}
	ids[pos] = tokenEnd
	return ids
}

// HashString returns a deterministic non-negative hash for use as a token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
