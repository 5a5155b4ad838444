package embedding

import (
	"context"
	"math"
	"sync/atomic"
)

// MockBackend is a deterministic backend for tests. It derives a normalized
// fixed-dimension vector from the text hash, so identical text always gets an
// identical embedding. Calls reports how many batch requests reached the
// backend, which lets tests observe cache transparency.
type MockBackend struct {
	dimensions int
	calls      atomic.Int64
	fail       error
}

// NewMockBackend returns a backend producing deterministic embeddings.
func NewMockBackend(dimensions int) *MockBackend {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockBackend{dimensions: dimensions}
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (b *MockBackend) FailWith(err error) { b.fail = err }

// Calls returns the number of EmbedBatch invocations so far.
func (b *MockBackend) Calls() int64 { return b.calls.Load() }

// EmbedBatch embeds each text deterministically from its hash.
func (b *MockBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.calls.Add(1)
	if b.fail != nil {
		return nil, &BackendError{Op: "mock", Err: b.fail}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = b.embed(text)
	}
	return out, nil
}

func (b *MockBackend) embed(text string) []float32 {
	h := HashString(text)
	vec := make([]float32, b.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	NormalizeL2Slice(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (b *MockBackend) Dimensions() int { return b.dimensions }

// Ping reports mock availability.
func (b *MockBackend) Ping(ctx context.Context) error {
	if b.fail != nil {
		return &BackendError{Op: "mock ping", Err: b.fail}
	}
	return nil
}

// Close is a no-op.
func (b *MockBackend) Close() error { return nil }
