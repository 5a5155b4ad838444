// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/service"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	svc       *service.Service
	cfg       *config.ServerConfig
	uploadDir string
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server over the application service. Uploaded files
// are stored under uploadDir before ingestion.
func NewServer(svc *service.Service, cfg *config.ServerConfig, uploadDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:       svc,
		cfg:       cfg,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Routes builds the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/corpora/{corpus}/documents", s.handleUpload)
		r.Get("/corpora/{corpus}/documents", s.handleListDocuments)
		r.Post("/corpora/{corpus}/answer", s.handleAnswer)
		r.Post("/corpora/{corpus}/rebuild", s.handleRebuild)
		r.Delete("/corpora/{corpus}", s.handleDeleteCorpus)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
