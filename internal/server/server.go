// Package server provides the HTTP API for Curio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/curio/internal/config"
	"github.com/hyperjump/curio/internal/search"
	"github.com/hyperjump/curio/internal/storage"
	"go.uber.org/zap"
)

// ReloadFunc re-imports the dataset files and swaps them into the engine.
// It is supplied by the caller because the server does not know how the
// dataset was built.
type ReloadFunc func(ctx context.Context) error

// Server is the HTTP server for the Curio API.
type Server struct {
	engine  *search.Engine
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	reload  ReloadFunc
	server  *http.Server
}

// NewServer creates a server with the given dependencies. storage and reload
// may be nil; the corresponding endpoints then report what they can.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	reload ReloadFunc,
) *Server {
	return &Server{
		engine:  engine,
		storage: store,
		config:  cfg,
		logger:  logger,
		reload:  reload,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/feedback", s.handleFeedback)
	r.Post("/api/v1/session/reset", s.handleSessionReset)
	r.Post("/api/v1/dataset/reload", s.handleDatasetReload)
	r.Get("/api/v1/images/{id}", s.handleGetImage)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
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
