package e2e

import (
	"context"
	"math"
	"strings"

	"github.com/kotae-ai/kotae/internal/embedding"
)

// wordVecBackend is a bag-of-words embedding backend for e2e tests. Each word
// maps to a deterministic pseudo-random unit vector; a text embeds as the
// normalized sum of its word vectors, so texts sharing vocabulary get a
// meaningfully higher cosine similarity. That is enough structure to assert
// that retrieval ranks the right document first.
type wordVecBackend struct {
	dimensions int
}

func newWordVecBackend(dimensions int) *wordVecBackend {
	return &wordVecBackend{dimensions: dimensions}
}

func (b *wordVecBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = b.embed(text)
	}
	return out, nil
}

func (b *wordVecBackend) embed(text string) []float32 {
	vec := make([]float32, b.dimensions)
	for _, word := range embedding.SplitWords(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := embedding.HashString(word)
		for i := range vec {
			vec[i] += float32(math.Sin(float64(h)*float64(i+1) + float64(h)))
		}
	}
	embedding.NormalizeL2Slice(vec)
	return vec
}

func (b *wordVecBackend) Dimensions() int { return b.dimensions }

func (b *wordVecBackend) Ping(ctx context.Context) error { return nil }

func (b *wordVecBackend) Close() error { return nil }
