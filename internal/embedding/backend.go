// Package embedding converts text into fixed-dimension vectors with caching.
package embedding

import (
	"context"
	"fmt"
)

// Backend produces vector embeddings for text. Implementations do not retry;
// the caller owns retry policy.
type Backend interface {
	// EmbedBatch embeds texts in order. The output has one vector per input
	// text, each of Dimensions() length.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Ping reports whether the backend is reachable and able to embed.
	Ping(ctx context.Context) error
	Close() error
}

// BackendError indicates the embedding backend was unreachable or returned
// malformed output (wrong dimension, empty vector). Transient; the caller
// decides whether to retry.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("embedding backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
