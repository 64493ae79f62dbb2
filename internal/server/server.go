// Package server provides the HTTP API for regsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/answer"
	"github.com/parcelmind/regsearch/internal/config"
	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/index"
	"github.com/parcelmind/regsearch/internal/parcel"
	"github.com/parcelmind/regsearch/internal/retrieve"
	"github.com/parcelmind/regsearch/internal/storage"
)

// Server is the HTTP server for the regsearch API. The retriever is swapped
// atomically when the watcher rebuilds the index, so in-flight requests
// always see a complete index.
type Server struct {
	mu        sync.RWMutex
	retriever *retrieve.Retriever

	embedder embedding.Embedder
	answerer *answer.Answerer
	parcel   *parcel.Client
	catalog  *storage.Catalog
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. idx may be nil
// when no index has been built yet; query endpoints report 503 until
// SetIndex provides one.
func NewServer(
	idx *index.Index,
	embedder embedding.Embedder,
	answerer *answer.Answerer,
	parcelClient *parcel.Client,
	catalog *storage.Catalog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		embedder: embedder,
		answerer: answerer,
		parcel:   parcelClient,
		catalog:  catalog,
		config:   cfg,
		logger:   logger,
	}
	if idx != nil {
		s.retriever = retrieve.New(idx, embedder, logger)
	}
	return s
}

// SetIndex replaces the served index. Safe to call while serving.
func (s *Server) SetIndex(idx *index.Index) {
	r := retrieve.New(idx, s.embedder, s.logger)
	s.mu.Lock()
	s.retriever = r
	s.mu.Unlock()
	s.logger.Info("index swapped", zap.Int("vectors", idx.Size()))
}

func (s *Server) currentRetriever() *retrieve.Retriever {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever
}

// Router builds the chi router. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/answer", s.handleAnswer)
	r.Get("/api/v1/property", s.handleProperty)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
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
