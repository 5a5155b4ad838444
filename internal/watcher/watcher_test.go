package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	ingests []string
	removes []string
	corpora map[string]string
}

func newRecorder() *recorder {
	return &recorder{corpora: make(map[string]string)}
}

func (r *recorder) onIngest(corpus, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingests = append(r.ingests, path)
	r.corpora[path] = corpus
}

func (r *recorder) onRemove(corpus, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removes = append(r.removes, path)
}

func (r *recorder) waitIngest(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.Lock()
		for _, p := range r.ingests {
			if p == path {
				corpus := r.corpora[p]
				r.mu.Unlock()
				return corpus
			}
		}
		r.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("ingest callback never fired for %s", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcherIngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := New([]Root{{Path: dir, Corpus: "kb"}}, []string{".txt"}, true,
		rec.onIngest, rec.onRemove, WithDebounce(20*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if corpus := rec.waitIngest(t, path); corpus != "kb" {
		t.Errorf("corpus = %q, want kb", corpus)
	}
}

func TestWatcherFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := New([]Root{{Path: dir, Corpus: "kb"}}, []string{".txt"}, true,
		rec.onIngest, rec.onRemove, WithDebounce(20*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	txt := filepath.Join(dir, "keep.txt")
	bin := filepath.Join(dir, "skip.bin")
	os.WriteFile(bin, []byte("x"), 0o644)
	os.WriteFile(txt, []byte("y"), 0o644)

	rec.waitIngest(t, txt)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.ingests {
		if p == bin {
			t.Errorf("filtered extension was ingested: %s", p)
		}
	}
}

func TestWatcherSyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "pre.txt")
	os.WriteFile(pre, []byte("existing"), 0o644)

	rec := newRecorder()
	w := New([]Root{{Path: dir, Corpus: "docs"}}, nil, true,
		rec.onIngest, rec.onRemove, WithDebounce(20*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	if corpus := rec.waitIngest(t, pre); corpus != "docs" {
		t.Errorf("corpus = %q, want docs", corpus)
	}
}

func TestWatcherDistinctCorpora(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	rec := newRecorder()
	w := New([]Root{{Path: dirA, Corpus: "alpha"}, {Path: dirB, Corpus: "beta"}},
		nil, true, rec.onIngest, rec.onRemove, WithDebounce(20*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	fa := filepath.Join(dirA, "a.txt")
	fb := filepath.Join(dirB, "b.txt")
	os.WriteFile(fa, []byte("a"), 0o644)
	os.WriteFile(fb, []byte("b"), 0o644)

	if corpus := rec.waitIngest(t, fa); corpus != "alpha" {
		t.Errorf("corpus for %s = %q", fa, corpus)
	}
	if corpus := rec.waitIngest(t, fb); corpus != "beta" {
		t.Errorf("corpus for %s = %q", fb, corpus)
	}
}

func TestWatcherAddAndRemoveRoot(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := New(nil, nil, true, rec.onIngest, rec.onRemove,
		WithDebounce(20*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := w.AddRoot(Root{Path: dir, Corpus: "late"}, false); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if len(w.Roots()) != 1 {
		t.Fatalf("roots = %+v", w.Roots())
	}
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("x"), 0o644)
	rec.waitIngest(t, path)

	if err := w.RemoveRoot(dir); err != nil {
		t.Fatalf("RemoveRoot: %v", err)
	}
	if len(w.Roots()) != 0 {
		t.Errorf("roots after remove = %+v", w.Roots())
	}
}
