// Package vectorindex provides named, dimension-fixed vector collections with
// namespace partitioning and similarity search.
package vectorindex

import (
	"context"
	"fmt"
)

// Metric is the similarity metric of an index.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
)

// MaxPreviewChars bounds the text preview stored in record metadata, to
// respect provider payload limits.
const MaxPreviewChars = 1000

// Metadata is the payload stored alongside a vector.
type Metadata struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// Record is one (id, vector, metadata) triple. IDs are derived
// deterministically from (document, chunk ordinal) so re-ingestion
// overwrites rather than duplicates.
type Record struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// RecordID returns the deterministic vector id for a document chunk.
func RecordID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, ordinal)
}

// NewMetadata builds record metadata with the text preview truncated to
// MaxPreviewChars.
func NewMetadata(source string, chunkIndex int, documentID, text string) Metadata {
	if len(text) > MaxPreviewChars {
		text = text[:MaxPreviewChars]
	}
	return Metadata{
		Source:     source,
		ChunkIndex: chunkIndex,
		DocumentID: documentID,
		Text:       text,
	}
}

// Match is a single similarity hit.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Stats describes index contents.
type Stats struct {
	Vectors    int            `json:"vectors"`
	Dimension  int            `json:"dimension"`
	Namespaces map[string]int `json:"namespaces,omitempty"`
}

// Index is a named, dimension-fixed vector collection. Namespaces logically
// partition one physical index so it can serve many corpora.
type Index interface {
	// Create ensures the index exists and is ready to serve, blocking with
	// bounded polling when the provider creates asynchronously. Calling it on
	// an existing index of matching dimension is a no-op success; a dimension
	// mismatch is a *ConfigError.
	Create(ctx context.Context) error
	// Upsert inserts or overwrites records by id. Providers with payload
	// limits split the records into batches; a failed batch aborts the rest
	// and is reported as a *BatchError.
	Upsert(ctx context.Context, records []Record, namespace string) error
	// Query returns up to topK matches ordered by descending score. An empty
	// index yields an empty result and nil error. Query never mutates state.
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error)
	Delete(ctx context.Context, ids []string, namespace string) error
	DeleteAll(ctx context.Context, namespace string) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// ConfigError is a fatal configuration problem (dimension mismatch, bad index
// name). It must not be retried.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "vector index config: " + e.Msg }

// BackendError is a transient provider failure (network, rate limit,
// malformed response).
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("vector index backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// BatchError reports which upsert batch failed; earlier batches were applied,
// later ones were not attempted. Safe to retry: ids are deterministic so a
// re-upsert overwrites.
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upsert batch %d failed: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
