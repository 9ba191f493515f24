// Package server provides the HTTP API for trisearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/trisearch/internal/config"
	"github.com/hyperjump/trisearch/internal/search"
	"github.com/hyperjump/trisearch/internal/storage"
)

// Server is the HTTP server for the trisearch API.
type Server struct {
	engine    *search.Engine
	storage   storage.Storage
	config    *config.ServerConfig
	appConfig *config.Config // optional; adds storage and search settings to /api/v1/status
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	storage storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	appConfig *config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:    engine,
		storage:   storage,
		config:    cfg,
		appConfig: appConfig,
		logger:    logger,
	}
}

// Handler returns the router with all API routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/products/{id}", s.handleGetProduct)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
