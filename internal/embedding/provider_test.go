package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProviderCacheTransparency(t *testing.T) {
	backend := NewMockBackend(64)
	p := NewProvider(backend, 512, 100)
	ctx := context.Background()

	first, err := p.EmbedOne(ctx, "what is the refund policy?")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, err := p.EmbedOne(ctx, "what is the refund policy?")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if backend.Calls() != 1 {
		t.Errorf("second call should be served from cache, backend calls=%d", backend.Calls())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestProviderOrderPreserved(t *testing.T) {
	backend := NewMockBackend(32)
	p := NewProvider(backend, 512, 100)
	ctx := context.Background()

	// Warm t1 and t3 so t2 is the only miss on the second pass.
	if _, err := p.EmbedMany(ctx, []string{"t1", "t3"}); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}
	vecs, err := p.EmbedMany(ctx, []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	want := map[int]string{0: "t1", 1: "t2", 2: "t3"}
	for i, text := range want {
		direct := backend.embed(p.Preprocess(text))
		for j := range direct {
			if vecs[i][j] != direct[j] {
				t.Fatalf("vector %d does not match embedding of %q", i, text)
			}
		}
	}
}

func TestProviderBackendError(t *testing.T) {
	backend := NewMockBackend(16)
	backend.FailWith(errors.New("connection refused"))
	p := NewProvider(backend, 512, 10)

	_, err := p.EmbedOne(context.Background(), "anything")
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
}

func TestProviderPreprocess(t *testing.T) {
	p := NewProvider(NewMockBackend(8), 20, 10)
	if got := p.Preprocess("  hello \n\t world  "); got != "hello world" {
		t.Errorf("whitespace not normalized: %q", got)
	}
	// Truncation drops the partially cut trailing word.
	long := "alpha beta gamma delta epsilon"
	got := p.Preprocess(long)
	if len(got) > 20 {
		t.Errorf("not truncated: %q", got)
	}
	if strings.HasSuffix(got, "gam") || strings.HasSuffix(got, "gamm") {
		t.Errorf("partial trailing word kept: %q", got)
	}
}

func TestCacheFIFOEviction(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), []float32{float32(i)})
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry should be evicted first")
	}
	// FIFO, not LRU: reading k1 must not save it from eviction.
	c.Get("k1")
	c.Set("k4", []float32{4})
	if _, ok := c.Get("k1"); ok {
		t.Error("k1 should be evicted despite the recent read")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("k4 should be present")
	}
}
