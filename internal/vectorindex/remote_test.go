package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestRemote(t *testing.T, handler http.Handler, dim int) (*RemoteIndex, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	idx, err := NewRemoteIndex(RemoteConfig{
		BaseURL:   srv.URL,
		IndexName: "test-index",
		Dimension: dim,
	})
	if err != nil {
		t.Fatalf("NewRemoteIndex: %v", err)
	}
	return idx, srv
}

func TestRemoteCreateExistingReady(t *testing.T) {
	var created atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /indexes/test-index", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"name": "test-index", "dimension": 3,
			"status": map[string]any{"ready": true, "state": "Ready"},
		})
	})
	mux.HandleFunc("POST /indexes", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	idx, _ := newTestRemote(t, mux, 3)
	if err := idx.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Load() != 0 {
		t.Errorf("existing index should not be recreated")
	}
}

func TestRemoteCreateDimensionMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /indexes/test-index", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"name": "test-index", "dimension": 768,
			"status": map[string]any{"ready": true},
		})
	})
	idx, _ := newTestRemote(t, mux, 384)
	err := idx.Create(context.Background())
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestRemoteCreatePollsUntilReady(t *testing.T) {
	var describes atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /indexes/test-index", func(w http.ResponseWriter, r *http.Request) {
		n := describes.Add(1)
		if n == 1 {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name": "test-index", "dimension": 3,
			"status": map[string]any{"ready": n >= 3},
		})
	})
	mux.HandleFunc("POST /indexes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	idx, _ := newTestRemote(t, mux, 3)
	if err := idx.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if describes.Load() < 3 {
		t.Errorf("expected polling describes, got %d", describes.Load())
	}
}

func TestRemoteUpsertBatches(t *testing.T) {
	var batches []int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /indexes/test-index/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vectors   []Record `json:"vectors"`
			Namespace string   `json:"namespace"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body.Namespace != "corpus" {
			t.Errorf("namespace = %q", body.Namespace)
		}
		batches = append(batches, len(body.Vectors))
		w.WriteHeader(http.StatusOK)
	})
	idx, _ := newTestRemote(t, mux, 2)

	records := make([]Record, 250)
	for i := range records {
		records[i] = rec(RecordID("doc", i), []float32{1, 0})
	}
	if err := idx.Upsert(context.Background(), records, "corpus"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	want := []int{100, 100, 50}
	if len(batches) != len(want) {
		t.Fatalf("expected %d batches, got %v", len(want), batches)
	}
	for i, w := range want {
		if batches[i] != w {
			t.Errorf("batch %d: got %d records, want %d", i, batches[i], w)
		}
	}
}

func TestRemoteUpsertBatchFailureReportsIndex(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /indexes/test-index/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	idx, _ := newTestRemote(t, mux, 2)

	records := make([]Record, 250)
	for i := range records {
		records[i] = rec(RecordID("doc", i), []float32{1, 0})
	}
	err := idx.Upsert(context.Background(), records, "ns")
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if be.Batch != 1 {
		t.Errorf("failed batch = %d, want 1", be.Batch)
	}
	if calls.Load() != 2 {
		t.Errorf("expected upserts to stop after failure, got %d calls", calls.Load())
	}
}

func TestRemoteQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /indexes/test-index/query", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TopK      int    `json:"topK"`
			Namespace string `json:"namespace"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.TopK != 5 {
			t.Errorf("topK = %d", body.TopK)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "doc_chunk_0", "score": 0.91,
					"metadata": map[string]any{"document_id": "doc", "text": "hi"}},
			},
		})
	})
	idx, _ := newTestRemote(t, mux, 2)
	matches, err := idx.Query(context.Background(), []float32{1, 0}, 5, "ns")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "doc_chunk_0" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if matches[0].Metadata.DocumentID != "doc" {
		t.Errorf("metadata not decoded: %+v", matches[0].Metadata)
	}
}

func TestRemoteQueryEmptyMatches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /indexes/test-index/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	})
	idx, _ := newTestRemote(t, mux, 2)
	matches, err := idx.Query(context.Background(), []float32{1, 0}, 5, "ns")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", matches)
	}
}
