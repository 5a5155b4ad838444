package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RESTBackend embeds text via an OpenAI-compatible /embeddings endpoint
// (hosted APIs, Ollama, llama.cpp server, etc.). It performs no retries.
type RESTBackend struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// RESTConfig configures a RESTBackend.
type RESTConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewRESTBackend creates a REST embedding backend. Dimensions must match the
// model's output; a mismatch surfaces as a BackendError on first use.
func NewRESTBackend(cfg RESTConfig) *RESTBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RESTBackend{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch sends texts to the embeddings endpoint and returns vectors in
// input order.
func (b *RESTBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: b.model})
	if err != nil {
		return nil, &BackendError{Op: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &BackendError{Op: "post embeddings", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &BackendError{Op: "post embeddings", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &BackendError{Op: "decode response", Err: err}
	}
	if len(parsed.Data) != len(texts) {
		return nil, &BackendError{Op: "decode response", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data))}
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, &BackendError{Op: "decode response", Err: fmt.Errorf("embedding index %d out of range", d.Index)}
		}
		vec := d.Embedding
		if len(vec) == 0 || (b.dimensions > 0 && len(vec) != b.dimensions) {
			return nil, &BackendError{Op: "decode response", Err: fmt.Errorf("expected dimension %d, got %d", b.dimensions, len(vec))}
		}
		NormalizeL2Slice(vec)
		out[d.Index] = vec
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (b *RESTBackend) Dimensions() int { return b.dimensions }

// Ping embeds a trivial string to verify the endpoint is reachable.
func (b *RESTBackend) Ping(ctx context.Context) error {
	_, err := b.EmbedBatch(ctx, []string{"ping"})
	return err
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (b *RESTBackend) Close() error { return nil }
