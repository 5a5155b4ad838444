package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/answer"
	"github.com/kotae-ai/kotae/internal/chunker"
	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/extract"
	"github.com/kotae-ai/kotae/internal/ingest"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/service"
	"github.com/kotae-ai/kotae/internal/storage"
	"github.com/kotae-ai/kotae/internal/vectorindex"
)

const cannedAnswer = "According to the uploaded documents, the system chunks text and retrieves by similarity."

func newTestServer(t *testing.T) (*Server, *service.Service) {
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
	engine := retrieval.NewEngine(provider, index,
		retrieval.WithDefaults(retrieval.Options{MinScore: 0.0001, TopK: 5, FallbackK: 3, MaxContext: 3}))
	generator := answer.NewGenerator(answer.NewMockGenerator(cannedAnswer))

	svc := service.New(registry, index, provider, pipeline, workers, engine, generator)
	if err := svc.Start(context.Background(), 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)

	srv := NewServer(svc, &config.ServerConfig{Host: "localhost", Port: 0},
		filepath.Join(dir, "uploads"), zap.NewNop())
	return srv, svc
}

func doRequest(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, srv *Server, corpus, filename, content string) models.Document {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/"+corpus+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(t, srv, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload returned %d: %s", rec.Code, rec.Body.String())
	}
	var doc models.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return doc
}

func waitProcessed(t *testing.T, svc *service.Service, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		doc, err := svc.GetDocument(context.Background(), id)
		if err == nil && doc.Status == models.StatusProcessed {
			return
		}
		if err == nil && doc.Status == models.StatusFailed {
			t.Fatalf("document failed: %s", doc.Error)
		}
		if time.Now().After(deadline) {
			t.Fatal("document never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUploadAndGetDocument(t *testing.T) {
	srv, svc := newTestServer(t)
	doc := uploadFile(t, srv, "kb", "notes.txt",
		strings.Repeat("Kotae answers questions from uploaded documents. ", 10))
	if doc.Status != models.StatusPending {
		t.Errorf("upload response status = %q, want pending", doc.Status)
	}
	waitProcessed(t, svc, doc.ID)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get document returned %d", rec.Code)
	}
	var got models.Document
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != models.StatusProcessed || got.ChunksCount == 0 {
		t.Errorf("document = %+v", got)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "malware.exe")
	fw.Write([]byte("MZ"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/kb/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(t, srv, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnswerEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	doc := uploadFile(t, srv, "kb", "facts.txt",
		strings.Repeat("The retrieval engine finds relevant chunks by cosine similarity. ", 10))
	waitProcessed(t, svc, doc.ID)

	body, _ := json.Marshal(answerRequest{Question: "how are chunks found?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/kb/answer", bytes.NewReader(body))
	rec := doRequest(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("answer returned %d: %s", rec.Code, rec.Body.String())
	}
	var res service.AnswerResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.Answer.Success {
		t.Errorf("expected successful answer: %+v", res.Answer)
	}
	if len(res.Answer.Sources) == 0 || res.Answer.Sources[0] != "facts.txt" {
		t.Errorf("sources = %v", res.Answer.Sources)
	}
}

func TestAnswerRequiresQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/kb/answer",
		strings.NewReader(`{}`))
	rec := doRequest(t, srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/corpora/nothing/answer",
		strings.NewReader(`{"question":"anything?"}`))
	rec := doRequest(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("answer returned %d", rec.Code)
	}
	var res service.AnswerResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Answer.Success {
		t.Errorf("expected unsuccessful answer for empty corpus")
	}
}

func TestDeleteCorpusEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	doc := uploadFile(t, srv, "kb", "a.txt", strings.Repeat("temporary corpus content. ", 10))
	waitProcessed(t, svc, doc.ID)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodDelete, "/api/v1/corpora/kb", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete corpus returned %d", rec.Code)
	}
	rec = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after corpus delete, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	doc := uploadFile(t, srv, "kb", "a.txt", strings.Repeat("status check content. ", 10))
	waitProcessed(t, svc, doc.ID)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d", rec.Code)
	}
	var st service.Status
	json.Unmarshal(rec.Body.Bytes(), &st)
	if len(st.Corpora) != 1 || st.Corpora[0].Counts.Processed != 1 {
		t.Errorf("status = %+v", st)
	}
	if st.Index.Vectors == 0 {
		t.Errorf("index stats missing from status")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
