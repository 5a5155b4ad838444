// Package ingest runs documents through extraction, chunking, embedding, and
// vector upsert, recording progress in the document registry.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/chunker"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/extract"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retry"
	"github.com/kotae-ai/kotae/internal/storage"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

// Pipeline processes one document end to end. It is the single writer of a
// document's registry status: pending -> processing -> processed|failed.
type Pipeline struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	provider  *embedding.Provider
	index     vectorindex.Index
	registry  storage.Storage
	policy    retry.Policy
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRetryPolicy overrides the upsert retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// NewPipeline wires the ingestion stages together.
func NewPipeline(
	extractor *extract.Extractor,
	ch *chunker.Chunker,
	provider *embedding.Provider,
	index vectorindex.Index,
	registry storage.Storage,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		chunker:   ch,
		provider:  provider,
		index:     index,
		registry:  registry,
		policy:    retry.Default,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process ingests a registered document. On success the registry records the
// chunk count and processed timestamp exactly once; on any failure the
// document is marked failed with the reason and the error is returned.
func (p *Pipeline) Process(ctx context.Context, doc *models.Document) error {
	if err := p.registry.MarkProcessing(ctx, doc.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	chunks, err := p.run(ctx, doc)
	if err != nil {
		p.logger.Error("ingestion failed",
			zap.String("document", doc.ID),
			zap.String("filename", doc.Filename),
			zap.Error(err))
		if markErr := p.registry.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
			p.logger.Error("failed to record ingestion failure",
				zap.String("document", doc.ID), zap.Error(markErr))
		}
		return err
	}

	if err := p.registry.MarkProcessed(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	p.logger.Info("document ingested",
		zap.String("document", doc.ID),
		zap.String("corpus", doc.Corpus),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", chunks))
	return nil
}

func (p *Pipeline) run(ctx context.Context, doc *models.Document) (int, error) {
	text, err := p.extractor.Extract(doc.FilePath)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", doc.Filename, err)
	}

	chunks := p.chunker.ChunkDocument(doc.ID, doc.Filename, text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text extracted from %s", doc.Filename)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.provider.EmbedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			ID:       vectorindex.RecordID(doc.ID, c.Ordinal),
			Vector:   vectors[i],
			Metadata: vectorindex.NewMetadata(c.Source, c.Ordinal, doc.ID, c.Text),
		}
	}

	// Vector ids are deterministic, so a retried upsert overwrites whatever
	// the failed attempt already wrote.
	err = p.policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			p.logger.Warn("retrying vector upsert",
				zap.String("document", doc.ID), zap.Int("attempt", attempt))
		}
		return p.index.Upsert(ctx, records, doc.Corpus)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(chunks), nil
}

// DeleteDocument removes a document's vectors and registry row.
func (p *Pipeline) DeleteDocument(ctx context.Context, doc *models.Document) error {
	if doc.ChunksCount > 0 {
		ids := make([]string, doc.ChunksCount)
		for i := range ids {
			ids[i] = vectorindex.RecordID(doc.ID, i)
		}
		if err := p.index.Delete(ctx, ids, doc.Corpus); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}
	if err := p.registry.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete registry row: %w", err)
	}
	return nil
}
