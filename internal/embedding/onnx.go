//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXBackend runs a local BERT-style embedding model with ONNX Runtime.
// Requires CGO and the onnxruntime shared library.
type ONNXBackend struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXBackend creates an ONNX embedding backend. InitializeEnvironment is
// called if not already done.
func NewONNXBackend(modelPath string, dimensions, maxTokens int) (*ONNXBackend, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputs := []ort.ArbitraryTensor{outputTensor}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		inputs,
		outputs,
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXBackend{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// EmbedBatch runs inference per text. The session holds pre-allocated
// tensors, so inference is serialized under the mutex.
func (b *ONNXBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &BackendError{Op: "embed", Err: err}
		}
		vec, err := b.embed(text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (b *ONNXBackend) embed(text string) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := b.tokenizer.Tokenize(text, b.maxTokens)

	copy(b.inputIDsTensor.GetData(), inputIDs)
	copy(b.attentionMaskTensor.GetData(), attentionMask)
	copy(b.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := b.session.Run(); err != nil {
		return nil, &BackendError{Op: "inference", Err: err}
	}

	outputData := b.outputTensor.GetData()
	vec := make([]float32, b.dimensions)
	copy(vec, outputData[:b.dimensions])

	NormalizeL2Slice(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (b *ONNXBackend) Dimensions() int { return b.dimensions }

// Ping verifies the session by embedding a trivial string.
func (b *ONNXBackend) Ping(ctx context.Context) error {
	_, err := b.embed("ping")
	return err
}

// Close destroys the session and tensors.
func (b *ONNXBackend) Close() error {
	var err error
	if b.session != nil {
		err = b.session.Destroy()
		b.session = nil
	}
	if b.inputIDsTensor != nil {
		_ = b.inputIDsTensor.Destroy()
		b.inputIDsTensor = nil
	}
	if b.attentionMaskTensor != nil {
		_ = b.attentionMaskTensor.Destroy()
		b.attentionMaskTensor = nil
	}
	if b.tokenTypeIDsTensor != nil {
		_ = b.tokenTypeIDsTensor.Destroy()
		b.tokenTypeIDsTensor = nil
	}
	if b.outputTensor != nil {
		_ = b.outputTensor.Destroy()
		b.outputTensor = nil
	}
	return err
}
