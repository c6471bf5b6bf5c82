// Package server exposes the fetch orchestrator over HTTP. Fetch routes
// stream progress as Server-Sent Events; everything else is plain JSON.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bipard/healthfetch/internal/config"
	apperrors "github.com/bipard/healthfetch/internal/errors"
	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
	"github.com/bipard/healthfetch/pkg/fetcher"
	"github.com/bipard/healthfetch/pkg/progress"
)

// Orchestrator is the fetch engine the server fronts.
type Orchestrator interface {
	Run(ctx context.Context, job *fetcher.FetchJob) *progress.Stream
	Endpoints() []endpoint.Spec
}

// StatusStore answers the read-only questions the status route asks.
type StatusStore interface {
	Count(ctx context.Context) (int64, error)
	RecentDates(ctx context.Context, limit int) ([]datekey.Key, error)
	LastFetchedAt(ctx context.Context) (string, error)
}

// Server is the HTTP front end.
type Server struct {
	cfg     config.ServerConfig
	engine  Orchestrator
	store   StatusStore
	logger  *zap.Logger
	version string
	router  chi.Router
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, engine Orchestrator, store StatusStore, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		logger:  logger,
		version: version,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/endpoints", s.handleEndpoints)
		r.Get("/fetch/today", s.handleFetchToday)
		r.Post("/fetch/range", s.handleFetchRange)
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.cfg.ReadTimeout,
		// SSE responses outlive any fixed write window, so WriteTimeout
		// stays unset and slow-client protection relies on IdleTimeout.
		IdleTimeout: s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// recoverer converts panics into the standard error envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				apperrors.WriteError(w, r, http.StatusInternalServerError,
					apperrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
