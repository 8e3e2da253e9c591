// Package server exposes the pipeline and store over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"trendpulse/internal/config"
	"trendpulse/internal/core"
	"trendpulse/internal/logger"
	"trendpulse/internal/pipeline"
)

// Scanner triggers a pipeline run.
type Scanner interface {
	Scan(ctx context.Context, opts pipeline.Options) (*pipeline.ScanResult, error)
}

// Store is the persisted-record surface the API reads and writes.
type Store interface {
	GetLatestReport(ctx context.Context) (*core.TrendsReport, error)
	GetHistory(ctx context.Context, limit int) ([]core.TrendsReport, error)
	GetAliases(ctx context.Context) ([]core.AliasRule, error)
	PutAliases(ctx context.Context, rules []core.AliasRule) error
	GetKeywordBundle(ctx context.Context) (*core.KeywordBundle, error)
}

// Server is the HTTP front for scans, reports, aliases, and keywords.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	scanner    Scanner
	store      Store
	schedule   string
	validate   *validator.Validate
	log        zerolog.Logger
}

// New creates the HTTP server. schedule is the human-readable cadence
// description surfaced by the health endpoint.
func New(scanner Scanner, store Store, cfg config.Server, schedule string) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		scanner:  scanner,
		store:    store,
		schedule: schedule,
		validate: validator.New(),
		log:      logger.With("server"),
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 30*time.Second),
	}

	return s
}

func (s *Server) setupMiddleware(cfg config.Server) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/latest", s.handleLatestReport)
			r.Get("/history", s.handleHistory)
		})
		r.Get("/aliases", s.handleGetAliases)
		r.Put("/aliases", s.handlePutAliases)
		r.Get("/keywords", s.handleKeywords)
	})
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the chi router, useful for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
