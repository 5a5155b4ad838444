// Package storage persists the document registry that tracks ingestion state.
package storage

import (
	"context"
	"errors"

	"github.com/kotae-ai/kotae/internal/models"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// CorpusCounts summarizes a corpus for status reporting.
type CorpusCounts struct {
	Documents int64 `json:"documents"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Chunks    int64 `json:"chunks"`
}

// Storage is the document registry. The registry records what was ingested
// and how far each document got; chunk text and vectors live in the vector
// index, not here.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, corpus string, offset, limit int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteCorpus(ctx context.Context, corpus string) error

	// Status transitions. Each returns ErrNotFound for unknown ids.
	MarkProcessing(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, id string, chunks int) error
	MarkFailed(ctx context.Context, id string, reason string) error

	Counts(ctx context.Context, corpus string) (CorpusCounts, error)
	Corpora(ctx context.Context) ([]string, error)

	Close() error
}
