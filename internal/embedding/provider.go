package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Provider wraps a Backend with text preprocessing and a shared FIFO cache
// keyed by the hash of the normalized text. Cache hits never reach the
// backend; batch output always preserves input order.
type Provider struct {
	backend  Backend
	cache    *Cache
	maxChars int
}

// NewProvider creates a provider over backend. maxChars bounds the text fed
// to the model (a partially truncated trailing word is dropped); cacheSize
// bounds the FIFO cache.
func NewProvider(backend Backend, maxChars, cacheSize int) *Provider {
	if maxChars <= 0 {
		maxChars = 512
	}
	return &Provider{
		backend:  backend,
		cache:    NewCache(cacheSize),
		maxChars: maxChars,
	}
}

// Dimensions returns the backend's embedding dimension.
func (p *Provider) Dimensions() int { return p.backend.Dimensions() }

// Ping reports whether the underlying backend can embed.
func (p *Provider) Ping(ctx context.Context) error { return p.backend.Ping(ctx) }

// Close releases backend resources.
func (p *Provider) Close() error { return p.backend.Close() }

// EmbedOne embeds a single text.
func (p *Provider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts, serving what it can from the cache and sending only
// the misses to the backend. The returned slice matches the input order.
func (p *Provider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		normalized := p.Preprocess(text)
		keys[i] = hashKey(normalized)
		if vec, ok := p.cache.Get(keys[i]); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, normalized)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := p.backend.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, &BackendError{Op: "embed batch", Err: fmt.Errorf("expected %d vectors, got %d", len(missTexts), len(vecs))}
	}
	dim := p.backend.Dimensions()
	for j, vec := range vecs {
		if len(vec) == 0 || (dim > 0 && len(vec) != dim) {
			return nil, &BackendError{Op: "embed batch", Err: fmt.Errorf("expected dimension %d, got %d", dim, len(vec))}
		}
		i := missIdx[j]
		out[i] = vec
		p.cache.Set(keys[i], vec)
	}
	return out, nil
}

// Preprocess collapses whitespace and truncates to maxChars, dropping a
// partially truncated trailing word.
func (p *Provider) Preprocess(text string) string {
	text = collapseWhitespace(text)
	if len(text) <= p.maxChars {
		return text
	}
	cut := text[:p.maxChars]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// CacheLen returns the number of cached embeddings.
func (p *Provider) CacheLen() int { return p.cache.Len() }

func hashKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
