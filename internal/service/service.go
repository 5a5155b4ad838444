// Package service is the application facade: it owns the ingestion workers,
// retrieval engine, and answer generator, and exposes the operations the
// server and CLI call.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/answer"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/extract"
	"github.com/kotae-ai/kotae/internal/fileid"
	"github.com/kotae-ai/kotae/internal/ingest"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/storage"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

// ErrUnsupportedFormat is returned when a file's extension is not ingestible.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrQueueFull is returned when the ingestion queue cannot accept more work.
var ErrQueueFull = errors.New("ingestion queue full")

// Service wires the pipeline stages behind one API.
type Service struct {
	registry  storage.Storage
	index     vectorindex.Index
	provider  *embedding.Provider
	pipeline  *ingest.Pipeline
	workers   *ingest.Workers
	engine    *retrieval.Engine
	generator *answer.Generator
	logger    *zap.Logger

	dataPaths []string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDataPaths registers filesystem paths whose disk usage Status reports.
func WithDataPaths(paths ...string) Option {
	return func(s *Service) { s.dataPaths = paths }
}

// New assembles a service from its components.
func New(
	registry storage.Storage,
	index vectorindex.Index,
	provider *embedding.Provider,
	pipeline *ingest.Pipeline,
	workers *ingest.Workers,
	engine *retrieval.Engine,
	generator *answer.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		registry:  registry,
		index:     index,
		provider:  provider,
		pipeline:  pipeline,
		workers:   workers,
		engine:    engine,
		generator: generator,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start readies the vector index and launches the background workers.
func (s *Service) Start(ctx context.Context, workerCount int) error {
	if err := s.index.Create(ctx); err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	s.workers.Start(ctx, workerCount)
	return nil
}

// Stop drains the workers and closes the components.
func (s *Service) Stop() {
	s.workers.Stop()
	if err := s.index.Close(); err != nil {
		s.logger.Warn("closing vector index", zap.Error(err))
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Warn("closing embedding provider", zap.Error(err))
	}
	if err := s.registry.Close(); err != nil {
		s.logger.Warn("closing registry", zap.Error(err))
	}
}

// Ingest registers a file under a corpus and schedules background
// processing. It returns the pending document immediately; progress is
// visible through GetDocument and Status.
func (s *Service) Ingest(ctx context.Context, corpus, filePath string) (*models.Document, error) {
	return s.ingest(ctx, corpus, filePath, uuid.NewString())
}

// IngestPath ingests a file with an ID derived from its path, so watched
// directories can re-ingest changed files without duplicating them.
func (s *Service) IngestPath(ctx context.Context, corpus, filePath string) (*models.Document, error) {
	return s.ingest(ctx, corpus, filePath, fileid.DocID(corpus, filePath))
}

func (s *Service) ingest(ctx context.Context, corpus, filePath, id string) (*models.Document, error) {
	ext := filepath.Ext(filePath)
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	doc := &models.Document{
		ID:        id,
		Corpus:    corpus,
		Filename:  filepath.Base(filePath),
		FilePath:  filePath,
		FileType:  extract.FileType(filePath),
		SizeBytes: info.Size(),
		Status:    models.StatusPending,
	}

	if existing, err := s.registry.GetDocument(ctx, id); err == nil {
		// Re-ingestion of a known path: reset the row and process again.
		if err := s.pipeline.DeleteDocument(ctx, existing); err != nil {
			return nil, fmt.Errorf("replace document: %w", err)
		}
	}
	if err := s.registry.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}
	if !s.workers.Enqueue(doc) {
		if err := s.registry.MarkFailed(ctx, doc.ID, ErrQueueFull.Error()); err != nil {
			s.logger.Warn("marking overflow document failed", zap.Error(err))
		}
		return nil, ErrQueueFull
	}
	s.logger.Info("document queued",
		zap.String("document", doc.ID),
		zap.String("corpus", corpus),
		zap.String("filename", doc.Filename))
	return doc, nil
}

// AnswerResult is the response to a question.
type AnswerResult struct {
	Answer   answer.Answer       `json:"answer"`
	Passages []retrieval.Passage `json:"passages"`
}

// Answer retrieves context from the corpus and generates a grounded answer.
// A corpus with no relevant content yields an unsuccessful answer rather
// than an error, and a transient embedding or index failure degrades the
// same way; only configuration problems surface as errors.
func (s *Service) Answer(ctx context.Context, corpus, question string, history []models.Turn, opts retrieval.Options) (AnswerResult, error) {
	passages, err := s.engine.Retrieve(ctx, question, corpus, opts)
	if errors.Is(err, retrieval.ErrNoContext) {
		return AnswerResult{
			Answer: answer.Answer{
				Text:    "No documents in this corpus contain information about that.",
				Sources: []string{},
				Success: false,
			},
			Passages: []retrieval.Passage{},
		}, nil
	}
	if err != nil {
		if !transientRetrievalError(err) {
			return AnswerResult{}, err
		}
		// Chat keeps answering when the embedder or index is down; the
		// degraded answer carries no sources.
		s.logger.Warn("retrieval failed, answering without context",
			zap.String("corpus", corpus), zap.Error(err))
		return AnswerResult{
			Answer:   s.generator.Generate(ctx, question, nil, history),
			Passages: []retrieval.Passage{},
		}, nil
	}
	ans := s.generator.Generate(ctx, question, passages, history)
	return AnswerResult{Answer: ans, Passages: passages}, nil
}

// transientRetrievalError reports whether retrieval failed on a backend that
// may recover, as opposed to a configuration problem worth surfacing.
func transientRetrievalError(err error) bool {
	var embErr *embedding.BackendError
	var idxErr *vectorindex.BackendError
	return errors.As(err, &embErr) || errors.As(err, &idxErr)
}

// RebuildResult reports a completed corpus rebuild.
type RebuildResult struct {
	Documents int `json:"documents"`
	Vectors   int `json:"vector_count"`
}

// Rebuild clears a corpus's vectors, re-processes every registered document
// from its source file, and reports the rebuilt vector count. It blocks
// until the queued documents settle, bounded by ctx.
func (s *Service) Rebuild(ctx context.Context, corpus string) (RebuildResult, error) {
	if err := s.index.DeleteAll(ctx, corpus); err != nil {
		return RebuildResult{}, fmt.Errorf("clear namespace: %w", err)
	}
	var ids []string
	for offset := 0; ; offset += 200 {
		docs, err := s.registry.ListDocuments(ctx, corpus, offset, 200)
		if err != nil {
			return RebuildResult{Documents: len(ids)}, fmt.Errorf("list documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			if !s.workers.Enqueue(doc) {
				return RebuildResult{Documents: len(ids)}, ErrQueueFull
			}
			ids = append(ids, doc.ID)
		}
	}
	if err := s.waitSettled(ctx, ids); err != nil {
		return RebuildResult{Documents: len(ids)}, fmt.Errorf("wait for rebuild: %w", err)
	}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return RebuildResult{Documents: len(ids)}, fmt.Errorf("index stats: %w", err)
	}
	res := RebuildResult{Documents: len(ids), Vectors: stats.Namespaces[corpus]}
	s.logger.Info("corpus rebuilt",
		zap.String("corpus", corpus),
		zap.Int("documents", res.Documents),
		zap.Int("vectors", res.Vectors))
	return res, nil
}

// waitSettled blocks until every listed document is processed or failed. A
// document deleted mid-wait counts as settled.
func (s *Service) waitSettled(ctx context.Context, ids []string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	pending := ids
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		remaining := pending[:0]
		for _, id := range pending {
			doc, err := s.registry.GetDocument(ctx, id)
			if err != nil {
				continue
			}
			if doc.Status != models.StatusProcessed && doc.Status != models.StatusFailed {
				remaining = append(remaining, id)
			}
		}
		pending = remaining
	}
	return nil
}

// DeleteCorpus removes a corpus's vectors and registry rows.
func (s *Service) DeleteCorpus(ctx context.Context, corpus string) error {
	if err := s.index.DeleteAll(ctx, corpus); err != nil {
		return fmt.Errorf("clear namespace: %w", err)
	}
	if err := s.registry.DeleteCorpus(ctx, corpus); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	s.logger.Info("corpus deleted", zap.String("corpus", corpus))
	return nil
}

// DeleteDocument removes one document's vectors and registry row.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.registry.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return s.pipeline.DeleteDocument(ctx, doc)
}

// GetDocument returns the registry record for a document.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.registry.GetDocument(ctx, id)
}

// ListDocuments returns the registry records for a corpus.
func (s *Service) ListDocuments(ctx context.Context, corpus string, offset, limit int) ([]*models.Document, error) {
	return s.registry.ListDocuments(ctx, corpus, offset, limit)
}

// CorpusStatus summarizes one corpus.
type CorpusStatus struct {
	Corpus  string               `json:"corpus"`
	Counts  storage.CorpusCounts `json:"counts"`
	Vectors int                  `json:"vectors"`
}

// Status is the system-level health snapshot. A degraded dependency (index,
// embedder, generator) shows up as a false flag, not an error.
type Status struct {
	IndexReady     bool              `json:"index_ready"`
	CanEmbed       bool              `json:"can_embed"`
	CanGenerate    bool              `json:"can_generate"`
	Corpora        []CorpusStatus    `json:"corpora"`
	Index          vectorindex.Stats `json:"index"`
	EmbeddingCache int               `json:"embedding_cache"`
	DiskUsageBytes int64             `json:"disk_usage_bytes"`
}

// Status reports per-corpus document counts alongside index statistics and
// backend reachability.
func (s *Service) Status(ctx context.Context) (Status, error) {
	names, err := s.registry.Corpora(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("list corpora: %w", err)
	}

	indexReady := true
	indexStats, err := s.index.Stats(ctx)
	if err != nil {
		s.logger.Warn("index stats", zap.Error(err))
		indexReady = false
	}

	corpora := make([]CorpusStatus, 0, len(names))
	for _, name := range names {
		counts, err := s.registry.Counts(ctx, name)
		if err != nil {
			return Status{}, fmt.Errorf("counts for %s: %w", name, err)
		}
		corpora = append(corpora, CorpusStatus{
			Corpus:  name,
			Counts:  counts,
			Vectors: indexStats.Namespaces[name],
		})
	}

	usage, err := storage.DiskUsageBytes(s.dataPaths...)
	if err != nil {
		s.logger.Warn("disk usage", zap.Error(err))
	}
	return Status{
		IndexReady:     indexReady,
		CanEmbed:       s.provider.Ping(ctx) == nil,
		CanGenerate:    s.generator.Ping(ctx) == nil,
		Corpora:        corpora,
		Index:          indexStats,
		EmbeddingCache: s.provider.CacheLen(),
		DiskUsageBytes: usage,
	}, nil
}

// Ping verifies the embedding backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx)
}
