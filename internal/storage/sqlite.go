package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kotae-ai/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		corpus TEXT NOT NULL,
		filename TEXT NOT NULL,
		file_path TEXT,
		file_type TEXT,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		chunks_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_corpus ON documents(corpus);
	CREATE INDEX IF NOT EXISTS idx_documents_corpus_status ON documents(corpus, status);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument registers a new document in pending state.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, corpus, filename, file_path, file_type, size_bytes,
		 status, chunks_count, error, created_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Corpus, doc.Filename, doc.FilePath, doc.FileType, doc.SizeBytes,
		string(doc.Status), doc.ChunksCount, doc.Error, doc.CreatedAt, doc.ProcessedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, corpus, filename, file_path, file_type, size_bytes,
		 status, chunks_count, error, created_at, processed_at
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var status string
	var errText sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.Corpus, &doc.Filename, &doc.FilePath, &doc.FileType,
		&doc.SizeBytes, &status, &doc.ChunksCount, &errText, &doc.CreatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	if errText.Valid {
		doc.Error = errText.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

// ListDocuments returns documents in a corpus, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, corpus string, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, corpus, filename, file_path, file_type, size_bytes,
		 status, chunks_count, error, created_at, processed_at
		 FROM documents WHERE corpus = ?
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		corpus, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCorpus removes every document registered under a corpus.
func (s *SQLiteStorage) DeleteCorpus(ctx context.Context, corpus string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE corpus = ?`, corpus)
	return err
}

// MarkProcessing moves a document into the processing state.
func (s *SQLiteStorage) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id,
		`UPDATE documents SET status = ?, error = NULL WHERE id = ?`,
		string(models.StatusProcessing), id)
}

// MarkProcessed records a successful ingestion with its chunk count. The
// processed timestamp is set exactly once, here.
func (s *SQLiteStorage) MarkProcessed(ctx context.Context, id string, chunks int) error {
	return s.transition(ctx, id,
		`UPDATE documents SET status = ?, chunks_count = ?, processed_at = ?, error = NULL
		 WHERE id = ?`,
		string(models.StatusProcessed), chunks, time.Now(), id)
}

// MarkFailed records a failed ingestion with the failure reason.
func (s *SQLiteStorage) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.transition(ctx, id,
		`UPDATE documents SET status = ?, error = ? WHERE id = ?`,
		string(models.StatusFailed), reason, id)
}

func (s *SQLiteStorage) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Counts summarizes a corpus.
func (s *SQLiteStorage) Counts(ctx context.Context, corpus string) (CorpusCounts, error) {
	var c CorpusCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		 COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(chunks_count), 0)
		 FROM documents WHERE corpus = ?`,
		string(models.StatusProcessed), string(models.StatusFailed), corpus,
	).Scan(&c.Documents, &c.Processed, &c.Failed, &c.Chunks)
	return c, err
}

// Corpora lists the distinct corpus names in the registry.
func (s *SQLiteStorage) Corpora(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT corpus FROM documents ORDER BY corpus`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
