//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXRequiresCGO = errors.New("ONNX backend requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXBackend stub type when built without CGO (see onnx.go for the real implementation).
type ONNXBackend struct{}

// NewONNXBackend returns an error when built without CGO (ONNX not available).
func NewONNXBackend(_ string, _, _ int) (*ONNXBackend, error) {
	return nil, errONNXRequiresCGO
}

// EmbedBatch is unreachable: NewONNXBackend never returns a usable stub.
func (b *ONNXBackend) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errONNXRequiresCGO
}

// Dimensions is unreachable: NewONNXBackend never returns a usable stub.
func (b *ONNXBackend) Dimensions() int { return 0 }

// Ping is unreachable: NewONNXBackend never returns a usable stub.
func (b *ONNXBackend) Ping(_ context.Context) error { return errONNXRequiresCGO }

// Close is unreachable: NewONNXBackend never returns a usable stub.
func (b *ONNXBackend) Close() error { return nil }
