// Package retrieval selects the context passages an answer is grounded on.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

// ErrNoContext is returned when the corpus holds nothing for the query, even
// after relaxing the score threshold.
var ErrNoContext = errors.New("no context found for query")

const (
	// DefaultTopK is how many candidates are fetched from the index.
	DefaultTopK = 5
	// DefaultMinScore is the similarity floor a candidate must clear.
	DefaultMinScore = 0.45
	// DefaultFallbackK caps how many below-threshold candidates are kept
	// when nothing clears the floor.
	DefaultFallbackK = 3
	// DefaultMaxContext caps how many passages feed the generator.
	DefaultMaxContext = 3
)

// Passage is one retrieved context fragment with its provenance.
type Passage struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	// BelowThreshold marks passages admitted by the fallback path.
	BelowThreshold bool `json:"below_threshold,omitempty"`
}

// Options tune a single retrieval.
type Options struct {
	TopK       int
	MinScore   float64
	FallbackK  int
	MaxContext int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	if o.FallbackK <= 0 {
		o.FallbackK = DefaultFallbackK
	}
	if o.MaxContext <= 0 {
		o.MaxContext = DefaultMaxContext
	}
	return o
}

// Engine embeds queries and searches the vector index.
type Engine struct {
	provider *embedding.Provider
	index    vectorindex.Index
	defaults Options
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithDefaults overrides the per-query defaults.
func WithDefaults(opts Options) Option {
	return func(e *Engine) { e.defaults = opts }
}

// NewEngine creates a retrieval engine over an embedding provider and index.
func NewEngine(provider *embedding.Provider, index vectorindex.Index, opts ...Option) *Engine {
	e := &Engine{
		provider: provider,
		index:    index,
		defaults: Options{}.withDefaults(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds the query and returns the passages to ground an answer on.
// Candidates below the score floor are dropped; if none clear it, the best
// few are kept anyway so the generator can still attempt an answer. An empty
// index yields ErrNoContext.
func (e *Engine) Retrieve(ctx context.Context, query, namespace string, opts Options) ([]Passage, error) {
	opts = mergeOptions(e.defaults, opts)

	vector, err := e.provider.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.index.Query(ctx, vector, opts.TopK, namespace)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNoContext
	}

	passages := make([]Passage, 0, len(matches))
	for _, m := range matches {
		if m.Score < opts.MinScore {
			continue
		}
		passages = append(passages, matchToPassage(m, false))
	}

	if len(passages) == 0 {
		// Nothing cleared the floor; keep the best candidates so the caller
		// can still answer, flagged as low-confidence.
		k := opts.FallbackK
		if k > len(matches) {
			k = len(matches)
		}
		for _, m := range matches[:k] {
			passages = append(passages, matchToPassage(m, true))
		}
		e.logger.Debug("retrieval fell back below score floor",
			zap.String("namespace", namespace),
			zap.Float64("min_score", opts.MinScore),
			zap.Float64("best_score", matches[0].Score),
			zap.Int("kept", len(passages)))
	}

	if len(passages) > opts.MaxContext {
		passages = passages[:opts.MaxContext]
	}
	e.logger.Debug("retrieved context",
		zap.String("namespace", namespace),
		zap.Int("candidates", len(matches)),
		zap.Int("passages", len(passages)))
	return passages, nil
}

func mergeOptions(base, override Options) Options {
	if override.TopK > 0 {
		base.TopK = override.TopK
	}
	if override.MinScore > 0 {
		base.MinScore = override.MinScore
	}
	if override.FallbackK > 0 {
		base.FallbackK = override.FallbackK
	}
	if override.MaxContext > 0 {
		base.MaxContext = override.MaxContext
	}
	return base
}

func matchToPassage(m vectorindex.Match, fallback bool) Passage {
	return Passage{
		ID:             m.ID,
		DocumentID:     m.Metadata.DocumentID,
		Source:         m.Metadata.Source,
		ChunkIndex:     m.Metadata.ChunkIndex,
		Text:           m.Metadata.Text,
		Score:          m.Score,
		BelowThreshold: fallback,
	}
}
