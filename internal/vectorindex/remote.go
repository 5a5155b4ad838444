package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// UpsertBatchSize is the maximum number of records sent per upsert
	// request, matching hosted provider payload limits.
	UpsertBatchSize = 100

	createPollInterval = 2 * time.Second
	createPollTimeout  = 300 * time.Second
)

// RemoteConfig configures a RemoteIndex.
type RemoteConfig struct {
	// BaseURL is the control/data-plane endpoint, e.g. https://index.example.com.
	BaseURL string
	APIKey  string
	// IndexName identifies the serverless index on the provider.
	IndexName string
	Dimension int
	Metric    Metric
	Timeout   time.Duration
}

// RemoteIndex talks to a hosted serverless vector database over its REST API.
type RemoteIndex struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.Logger
}

// RemoteOption configures a RemoteIndex.
type RemoteOption func(*RemoteIndex)

// WithRemoteLogger sets the logger.
func WithRemoteLogger(logger *zap.Logger) RemoteOption {
	return func(r *RemoteIndex) { r.logger = logger }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteIndex) { r.client = c }
}

// NewRemoteIndex creates a client for a hosted vector index.
func NewRemoteIndex(cfg RemoteConfig, opts ...RemoteOption) (*RemoteIndex, error) {
	if cfg.BaseURL == "" {
		return nil, &ConfigError{Msg: "base URL is required"}
	}
	if cfg.IndexName == "" {
		return nil, &ConfigError{Msg: "index name is required"}
	}
	if cfg.Dimension <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid dimension %d", cfg.Dimension)}
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &RemoteIndex{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// Create ensures the remote index exists and is ready. If the index already
// exists with the expected dimension this is a no-op; a dimension mismatch is
// fatal. A freshly created index is polled until the provider reports it
// ready, bounded by a five minute deadline.
func (r *RemoteIndex) Create(ctx context.Context) error {
	desc, err := r.describe(ctx)
	if err == nil {
		if desc.Dimension != r.cfg.Dimension {
			return &ConfigError{Msg: fmt.Sprintf("index %q has dimension %d, expected %d",
				r.cfg.IndexName, desc.Dimension, r.cfg.Dimension)}
		}
		if desc.Status.Ready {
			return nil
		}
		return r.waitReady(ctx)
	}
	if !isNotFound(err) {
		return err
	}

	body := map[string]any{
		"name":      r.cfg.IndexName,
		"dimension": r.cfg.Dimension,
		"metric":    string(r.cfg.Metric),
	}
	if err := r.do(ctx, http.MethodPost, "/indexes", body, nil); err != nil {
		return err
	}
	r.logger.Info("creating vector index",
		zap.String("index", r.cfg.IndexName),
		zap.Int("dimension", r.cfg.Dimension))
	return r.waitReady(ctx)
}

func (r *RemoteIndex) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(createPollTimeout)
	ticker := time.NewTicker(createPollInterval)
	defer ticker.Stop()
	for {
		desc, err := r.describe(ctx)
		if err == nil && desc.Status.Ready {
			return nil
		}
		if time.Now().After(deadline) {
			return &BackendError{Op: "create",
				Err: fmt.Errorf("index %q not ready after %s", r.cfg.IndexName, createPollTimeout)}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RemoteIndex) describe(ctx context.Context) (indexDescription, error) {
	var desc indexDescription
	err := r.do(ctx, http.MethodGet, "/indexes/"+r.cfg.IndexName, nil, &desc)
	return desc, err
}

// Upsert writes records in batches of UpsertBatchSize. On a failed batch the
// remaining batches are not attempted and the batch index is reported.
func (r *RemoteIndex) Upsert(ctx context.Context, records []Record, namespace string) error {
	for _, rec := range records {
		if len(rec.Vector) != r.cfg.Dimension {
			return &ConfigError{Msg: fmt.Sprintf("record %s has dimension %d, index expects %d",
				rec.ID, len(rec.Vector), r.cfg.Dimension)}
		}
	}
	for batch := 0; batch*UpsertBatchSize < len(records); batch++ {
		start := batch * UpsertBatchSize
		end := start + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		body := map[string]any{
			"vectors":   records[start:end],
			"namespace": namespace,
		}
		if err := r.do(ctx, http.MethodPost, r.dataPath("/vectors/upsert"), body, nil); err != nil {
			return &BatchError{Batch: batch, Err: err}
		}
	}
	return nil
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

func (r *RemoteIndex) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error) {
	if len(vector) != r.cfg.Dimension {
		return nil, &ConfigError{Msg: fmt.Sprintf("query vector has dimension %d, index expects %d",
			len(vector), r.cfg.Dimension)}
	}
	if topK <= 0 {
		return []Match{}, nil
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeMetadata": true,
	}
	var resp queryResponse
	if err := r.do(ctx, http.MethodPost, r.dataPath("/query"), body, &resp); err != nil {
		return nil, err
	}
	if resp.Matches == nil {
		return []Match{}, nil
	}
	return resp.Matches, nil
}

func (r *RemoteIndex) Delete(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"ids": ids, "namespace": namespace}
	return r.do(ctx, http.MethodPost, r.dataPath("/vectors/delete"), body, nil)
}

func (r *RemoteIndex) DeleteAll(ctx context.Context, namespace string) error {
	body := map[string]any{"deleteAll": true, "namespace": namespace}
	return r.do(ctx, http.MethodPost, r.dataPath("/vectors/delete"), body, nil)
}

type statsResponse struct {
	Dimension        int `json:"dimension"`
	TotalVectorCount int `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
}

func (r *RemoteIndex) Stats(ctx context.Context) (Stats, error) {
	var resp statsResponse
	if err := r.do(ctx, http.MethodPost, r.dataPath("/describe_index_stats"), map[string]any{}, &resp); err != nil {
		return Stats{}, err
	}
	st := Stats{
		Vectors:    resp.TotalVectorCount,
		Dimension:  resp.Dimension,
		Namespaces: make(map[string]int, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		st.Namespaces[name] = ns.VectorCount
	}
	return st, nil
}

func (r *RemoteIndex) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *RemoteIndex) dataPath(p string) string {
	return "/indexes/" + r.cfg.IndexName + p
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	be, ok := err.(*BackendError)
	if !ok {
		return false
	}
	se, ok := be.Err.(*httpStatusError)
	return ok && se.status == http.StatusNotFound
}

func (r *RemoteIndex) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &BackendError{Op: method + " " + path, Err: err}
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return &BackendError{Op: method + " " + path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cfg.APIKey != "" {
		req.Header.Set("Api-Key", r.cfg.APIKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return &BackendError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &BackendError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{Op: method + " " + path,
			Err: &httpStatusError{status: resp.StatusCode, body: string(bytes.TrimSpace(data))}}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &BackendError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
