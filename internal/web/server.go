// Package web serves the review-queue API on top of stored match runs.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/audit"
	"github.com/leed-ll97/internal/db"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/web/handlers"
	"github.com/leed-ll97/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	store      handlers.Store
	conn       *db.Connection
	httpServer *http.Server
	router     *mux.Router
	log        zerolog.Logger
}

// NewServer connects to the database and creates a server backed by the
// audit store.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	conn, err := db.NewConnection(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := NewServerWithStore(cfg, audit.NewStore(conn.DB))
	s.conn = conn
	return s, nil
}

// NewServerWithStore creates a server around an existing store.
func NewServerWithStore(cfg *Config, store handlers.Store) *Server {
	s := &Server{
		config: cfg,
		store:  store,
		log:    logging.WithComponent("web"),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ManualOverrideEnabled = s.config.Features.ManualOverrideEnabled

	review := &handlers.ReviewHandler{Store: s.store, Config: handlerConfig, Log: s.log}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs/latest", review.LatestRun).Methods("GET")
	api.HandleFunc("/review", review.ReviewQueue).Methods("GET")
	api.HandleFunc("/records/{source_id}", review.GetRecord).Methods("GET")
	api.HandleFunc("/stats", review.GetStats).Methods("GET")
	api.HandleFunc("/overrides", review.ListOverrides).Methods("GET")
	if s.config.Features.ManualOverrideEnabled {
		api.HandleFunc("/overrides", review.PostOverride).Methods("POST")
	}
	// Preflight requests only need the CORS headers.
	s.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst)

	s.router.Use(middleware.RequestLogging(s.log))
	s.router.Use(middleware.CORS())
	api.Use(limiter.Middleware)
	api.Use(middleware.Authentication(s.config.Auth.APIKey))
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("Starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("Server shutdown error")
	}
	s.close()
	s.log.Info().Msg("Server stopped")
	return nil
}

func (s *Server) close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.Error().Err(err).Msg("Database close error")
	}
}
