package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/quiz"
	"github.com/brojonat/solquiz/service/tokens"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reporter builds quiz and actions reports.
type Reporter interface {
	Quiz(ctx context.Context, account string, days int) (*quiz.QuizReport, error)
	Actions(ctx context.Context, account string, days, limit int) (*quiz.ActionsReport, error)
}

// TokenResolver looks up token metadata and persists newly resolved tokens.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) tokens.Token
	Tokens() []tokens.Token
	Flush(ctx context.Context) (int, error)
}

// Server represents the HTTP server exposing health, metrics and the JSON
// reporting API.
type Server struct {
	addr     string
	reporter Reporter
	resolver TokenResolver
	renderer *quiz.Renderer
	maxDays  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The resolver is optional - if nil, token endpoints won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, reporter Reporter, resolver TokenResolver, renderer *quiz.Renderer, maxDays int, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		reporter: reporter,
		resolver: resolver,
		renderer: renderer,
		maxDays:  maxDays,
		metrics:  m,
		logger:   logger,
	}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/v1/accounts/{account}/quiz", handleQuiz(s.reporter, s.renderer, s.maxDays, s.logger))
	s.route(mux, "GET /api/v1/accounts/{account}/actions", handleActions(s.reporter, s.renderer, s.maxDays, s.logger))
	s.route(mux, "GET /api/v1/accounts/{account}/qr", handleAccountQR(s.renderer, s.logger))

	if s.resolver != nil {
		s.route(mux, "GET /api/v1/tokens/{mint}", handleGetToken(s.resolver, s.logger))
		s.route(mux, "GET /api/v1/tokens", handleListTokens(s.resolver, s.logger))
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, metrics.HTTPMetricsMiddleware(s.metrics, pattern)(h))
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
