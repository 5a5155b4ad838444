package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kotae-ai/kotae/internal/answer"
	"github.com/kotae-ai/kotae/internal/chunker"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/extract"
	"github.com/kotae-ai/kotae/internal/ingest"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/storage"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

const longAnswer = "The answer, grounded in the retrieved passages, spans more than forty characters."

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	registry, err := storage.NewSQLiteStorage(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	index, _ := vectorindex.NewMemoryIndex(8, vectorindex.MetricCosine)
	backend := embedding.NewMockBackend(8)
	provider := embedding.NewProvider(backend, 4096, 100)
	pipeline := ingest.NewPipeline(extract.NewExtractor(), chunker.New(100, 20), provider, index, registry)
	workers := ingest.NewWorkers(pipeline, 16, nil)
	// Low floor: mock embeddings are hash-derived, so scores are arbitrary.
	engine := retrieval.NewEngine(provider, index,
		retrieval.WithDefaults(retrieval.Options{MinScore: 0.0001, TopK: 5, FallbackK: 3, MaxContext: 3}))
	generator := answer.NewGenerator(answer.NewMockGenerator(longAnswer))

	svc := New(registry, index, provider, pipeline, workers, engine, generator,
		WithDataPaths(dir))
	if err := svc.Start(context.Background(), 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitProcessed(t *testing.T, svc *Service, id string) *models.Document {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		doc, err := svc.GetDocument(context.Background(), id)
		if err == nil && doc.Status != models.StatusPending && doc.Status != models.StatusProcessing {
			return doc
		}
		if time.Now().After(deadline) {
			t.Fatalf("document %s never finished", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIngestAndAnswer(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, dir, "facts.txt",
		strings.Repeat("Retrieval augmented generation grounds answers in documents. ", 10))

	doc, err := svc.Ingest(ctx, "kb", path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if doc.Status != models.StatusPending {
		t.Errorf("fresh document status = %q", doc.Status)
	}
	got := waitProcessed(t, svc, doc.ID)
	if got.Status != models.StatusProcessed {
		t.Fatalf("document failed: %+v", got)
	}

	res, err := svc.Answer(ctx, "kb", "what grounds answers?", nil, retrieval.Options{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !res.Answer.Success {
		t.Errorf("expected successful answer, got %+v", res.Answer)
	}
	if len(res.Passages) == 0 {
		t.Errorf("expected supporting passages")
	}
	if len(res.Answer.Sources) == 0 || res.Answer.Sources[0] != "facts.txt" {
		t.Errorf("sources = %v", res.Answer.Sources)
	}
}

func TestAnswerSurvivesEmbeddingOutage(t *testing.T) {
	dir := t.TempDir()
	registry, err := storage.NewSQLiteStorage(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	index, _ := vectorindex.NewMemoryIndex(8, vectorindex.MetricCosine)
	backend := embedding.NewMockBackend(8)
	provider := embedding.NewProvider(backend, 4096, 100)
	pipeline := ingest.NewPipeline(extract.NewExtractor(), chunker.New(100, 20), provider, index, registry)
	workers := ingest.NewWorkers(pipeline, 16, nil)
	engine := retrieval.NewEngine(provider, index,
		retrieval.WithDefaults(retrieval.Options{MinScore: 0.0001, TopK: 5, FallbackK: 3, MaxContext: 3}))
	generator := answer.NewGenerator(answer.NewMockGenerator(longAnswer))
	svc := New(registry, index, provider, pipeline, workers, engine, generator)
	if err := svc.Start(context.Background(), 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)

	ctx := context.Background()
	path := writeFile(t, dir, "facts.txt",
		strings.Repeat("Documents keep answering even when the embedder is down. ", 10))
	doc, err := svc.Ingest(ctx, "kb", path)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	waitProcessed(t, svc, doc.ID)

	backend.FailWith(errors.New("embedding backend down"))
	res, err := svc.Answer(ctx, "kb", "does it keep answering?", nil, retrieval.Options{})
	if err != nil {
		t.Fatalf("Answer propagated a backend outage: %v", err)
	}
	if res.Answer.Success {
		t.Errorf("expected degraded answer, got %+v", res.Answer)
	}
	if res.Answer.Text == "" {
		t.Errorf("expected safe fallback text")
	}
	if len(res.Answer.Sources) != 0 || len(res.Passages) != 0 {
		t.Errorf("degraded answer must carry no context: sources=%v passages=%d",
			res.Answer.Sources, len(res.Passages))
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Answer(context.Background(), "empty", "anything?", nil, retrieval.Options{})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer.Success {
		t.Errorf("expected unsuccessful answer for empty corpus, got %+v", res.Answer)
	}
	if len(res.Passages) != 0 {
		t.Errorf("expected no passages, got %d", len(res.Passages))
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	svc, dir := newTestService(t)
	path := writeFile(t, dir, "binary.exe", "MZ")
	_, err := svc.Ingest(context.Background(), "kb", path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestIngestPathIdempotent(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.txt", strings.Repeat("stable identity content. ", 10))

	d1, err := svc.IngestPath(ctx, "kb", path)
	if err != nil {
		t.Fatalf("first IngestPath: %v", err)
	}
	waitProcessed(t, svc, d1.ID)

	d2, err := svc.IngestPath(ctx, "kb", path)
	if err != nil {
		t.Fatalf("second IngestPath: %v", err)
	}
	if d1.ID != d2.ID {
		t.Errorf("same path produced different ids: %q vs %q", d1.ID, d2.ID)
	}
	waitProcessed(t, svc, d2.ID)

	docs, _ := svc.ListDocuments(ctx, "kb", 0, 10)
	if len(docs) != 1 {
		t.Errorf("re-ingestion duplicated registry rows: %d", len(docs))
	}
}

func TestDeleteCorpus(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.txt", strings.Repeat("deletable corpus content. ", 10))
	doc, _ := svc.Ingest(ctx, "kb", path)
	waitProcessed(t, svc, doc.ID)

	if err := svc.DeleteCorpus(ctx, "kb"); err != nil {
		t.Fatalf("DeleteCorpus: %v", err)
	}
	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Index.Vectors != 0 {
		t.Errorf("vectors survived corpus delete: %+v", st.Index)
	}
	if len(st.Corpora) != 0 {
		t.Errorf("registry rows survived corpus delete: %+v", st.Corpora)
	}
}

func TestRebuild(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.txt", strings.Repeat("rebuildable content here. ", 10))
	doc, _ := svc.Ingest(ctx, "kb", path)
	first := waitProcessed(t, svc, doc.ID)

	res, err := svc.Rebuild(ctx, "kb")
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if res.Documents != 1 {
		t.Errorf("expected 1 document rebuilt, got %d", res.Documents)
	}
	if res.Vectors != first.ChunksCount {
		t.Errorf("rebuild vector count = %d, want %d", res.Vectors, first.ChunksCount)
	}
	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Index.Vectors != first.ChunksCount {
		t.Errorf("index vectors after rebuild = %d, want %d",
			st.Index.Vectors, first.ChunksCount)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.txt", strings.Repeat("status content for counting. ", 10))
	doc, _ := svc.Ingest(ctx, "kb", path)
	got := waitProcessed(t, svc, doc.ID)

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(st.Corpora) != 1 || st.Corpora[0].Corpus != "kb" {
		t.Fatalf("corpora = %+v", st.Corpora)
	}
	c := st.Corpora[0]
	if c.Counts.Documents != 1 || c.Counts.Processed != 1 {
		t.Errorf("counts = %+v", c.Counts)
	}
	if c.Vectors != got.ChunksCount {
		t.Errorf("vectors = %d, want %d", c.Vectors, got.ChunksCount)
	}
	if st.DiskUsageBytes == 0 {
		t.Errorf("disk usage not reported")
	}
	if !st.IndexReady || !st.CanEmbed || !st.CanGenerate {
		t.Errorf("health flags = %t %t %t", st.IndexReady, st.CanEmbed, st.CanGenerate)
	}
}
