// Package models defines core data structures for documents, chunks, and chat turns.
package models

import "time"

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the registry record for an uploaded document. It is created on
// upload and mutated only by the ingestion pipeline (single writer per document).
type Document struct {
	ID          string         `json:"id" db:"id"`
	Corpus      string         `json:"corpus" db:"corpus"`
	Filename    string         `json:"filename" db:"filename"`
	FilePath    string         `json:"file_path" db:"file_path"`
	FileType    string         `json:"file_type" db:"file_type"`
	SizeBytes   int64          `json:"size_bytes" db:"size_bytes"`
	Status      DocumentStatus `json:"status" db:"status"`
	ChunksCount int            `json:"chunks_count" db:"chunks_count"`
	Error       string         `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty" db:"processed_at"`
}

// Processed reports whether ingestion completed successfully.
func (d *Document) Processed() bool {
	return d.Status == StatusProcessed
}

// Chunk is a bounded contiguous slice of a document's extracted text.
// Immutable once created; identity is (DocumentID, Ordinal).
type Chunk struct {
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
	WordCount  int    `json:"word_count"`
	Source     string `json:"source"`
}

// Turn is one prior exchange message in a conversation, oldest first.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}
