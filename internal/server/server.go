// Package server provides the HTTP API for jimaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/pipeline"
	"github.com/hyperjump/jimaku/internal/search"
	"github.com/hyperjump/jimaku/internal/storage"
)

// JobQueue accepts subtitle jobs for background processing.
type JobQueue interface {
	Submit(job models.SubtitleJob) error
}

// VideoIndex is the part of the indexer the API needs.
type VideoIndex interface {
	DeleteVideo(ctx context.Context, videoID string) error
	DocCounts() (map[string]uint64, error)
}

// Server is the HTTP server for the jimaku API.
type Server struct {
	engine    *search.Engine
	indexer   VideoIndex
	subtitler *pipeline.Subtitler
	jobs      JobQueue
	videos    storage.VideoStore
	blobs     storage.BlobStore
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx VideoIndex,
	subtitler *pipeline.Subtitler,
	jobs JobQueue,
	videos storage.VideoStore,
	blobs storage.BlobStore,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:    engine,
		indexer:   idx,
		subtitler: subtitler,
		jobs:      jobs,
		videos:    videos,
		blobs:     blobs,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with every API route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearch)

		r.Get("/videos", s.handleListVideos)
		r.Post("/videos", s.handleCreateVideo)
		r.Route("/videos/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVideo)
			r.Delete("/", s.handleDeleteVideo)
			r.Put("/transcript", s.handlePutTranscript)
			r.Post("/subtitles", s.handleRequestSubtitle)
			r.Get("/subtitles/{file}", s.handleGetSubtitle)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
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
