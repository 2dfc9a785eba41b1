// Package server exposes the lineage query engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/colgraph/internal/ingest"
	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// Store is the graph access the server needs: reads for queries, writes
// for fact re-ingestion.
type Store interface {
	core.GraphStore
	core.GraphWriter
}

// Server serves the lineage API.
type Server struct {
	store        Store
	orchestrator *query.Orchestrator
	loader       *ingest.Loader
	addr         string
	watch        bool
	factsDir     string
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Store    Store
	Defaults query.Defaults
	Addr     string
	Watch    bool
	FactsDir string
	Logger   *slog.Logger
}

// NewServer creates a server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		store:        cfg.Store,
		orchestrator: query.New(cfg.Store, logger, cfg.Defaults),
		loader:       ingest.NewLoader(cfg.Store, nil, logger),
		addr:         cfg.Addr,
		watch:        cfg.Watch,
		factsDir:     cfg.FactsDir,
		logger:       logger,
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting lineage server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)
	s.routes(r)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFacts(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down lineage server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// routes mounts the API endpoints.
func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Route("/api/lineage", func(r chi.Router) {
		r.Get("/table", s.handleTable)
		r.Post("/columns", s.handleColumns)
		r.Get("/job", s.handleJob)
	})
	r.Get("/api/export/table", s.handleExportTable)
}

// watchFacts re-ingests analyzer fact files as they land in factsDir.
func (s *Server) watchFacts(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.factsDir); err != nil {
		s.logger.Error("failed to watch facts directory", "dir", s.factsDir, "error", err)
		// Continue serving without watching.
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".csv" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("fact file changed, re-ingesting", "file", name)
				sum, err := s.loader.LoadFile(ctx, name)
				if err != nil {
					s.logger.Error("ingest failed", "file", name, "error", err)
					return
				}
				s.logger.Info("ingested fact file",
					"file", name, "batch", sum.BatchID, "edges", sum.Edges, "skipped", sum.Skipped)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
