// Package server provides the HTTP API for Kaiwa.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kaiwa/internal/chat"
	"github.com/hyperjump/kaiwa/internal/config"
	"github.com/hyperjump/kaiwa/internal/ingest"
	"github.com/hyperjump/kaiwa/internal/session"
	"github.com/hyperjump/kaiwa/internal/vector"
)

// sessionCookie carries the opaque session id between chat requests.
const sessionCookie = "kaiwa_session"

// maxUploadBytes caps one multipart upload request.
const maxUploadBytes = 16 << 20

// Server is the HTTP server for the Kaiwa API.
type Server struct {
	ingester *ingest.Pipeline
	chat     *chat.Pipeline
	index    *vector.Index
	store    session.Store
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingester *ingest.Pipeline,
	chatPipeline *chat.Pipeline,
	index *vector.Index,
	store session.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingester: ingester,
		chat:     chatPipeline,
		index:    index,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router. Split from Start so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/upload", s.handleUpload)
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
