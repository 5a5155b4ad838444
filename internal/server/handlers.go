package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/service"
	"github.com/kotae-ai/kotae/internal/storage"
)

const maxUploadBytes = 64 << 20

// handleUpload accepts either a multipart file upload (field "file") or a
// JSON body {"path": "..."} referencing a file on the server host. Either
// way the document is registered and queued; the response carries the
// pending record.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")

	var doc *models.Document
	var err error
	if isMultipart(r) {
		doc, err = s.ingestUpload(r, corpus)
	} else {
		var req struct {
			Path string `json:"path"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil || req.Path == "" {
			s.respondError(w, http.StatusBadRequest, "expected multipart file or JSON body with path")
			return
		}
		doc, err = s.svc.Ingest(r.Context(), corpus, req.Path)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFormat):
			s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, service.ErrQueueFull):
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.logger.Error("ingest failed", zap.String("corpus", corpus), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusAccepted, doc)
}

func isMultipart(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return len(ct) >= 19 && ct[:19] == "multipart/form-data"
}

func (s *Server) ingestUpload(r *http.Request, corpus string) (*models.Document, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dir := filepath.Join(s.uploadDir, corpus)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dst := filepath.Join(dir, filepath.Base(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dst)
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	// Uploads of the same filename replace the previous version.
	return s.svc.IngestPath(r.Context(), corpus, dst)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	docs, err := s.svc.ListDocuments(r.Context(), corpus, offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type answerRequest struct {
	Question string        `json:"question"`
	History  []models.Turn `json:"history,omitempty"`
	TopK     int           `json:"top_k,omitempty"`
	MinScore float64       `json:"min_score,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("answer request",
		zap.String("corpus", corpus), zap.String("question", req.Question))

	res, err := s.svc.Answer(r.Context(), corpus, req.Question, req.History, retrieval.Options{
		TopK:     req.TopK,
		MinScore: req.MinScore,
	})
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")
	res, err := s.svc.Rebuild(r.Context(), corpus)
	if err != nil {
		s.logger.Error("rebuild failed", zap.String("corpus", corpus), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"corpus":       corpus,
		"documents":    res.Documents,
		"vector_count": res.Vectors,
	})
}

func (s *Server) handleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	corpus := chi.URLParam(r, "corpus")
	if err := s.svc.DeleteCorpus(r.Context(), corpus); err != nil {
		s.logger.Error("delete corpus failed", zap.String("corpus", corpus), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"corpus": corpus, "status": "deleted"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.svc.GetDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.svc.DeleteDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("delete document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
