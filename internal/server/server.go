package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
	"github.com/alanyoungcy/natalchart/internal/server/handler"
	"github.com/alanyoungcy/natalchart/internal/server/middleware"
	"github.com/alanyoungcy/natalchart/internal/server/ws"
)

const healthPath = "/api/health"

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	// RateLimit requests per RateWindow per client IP; <= 0 disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Charts  *handler.ChartHandler
	Batches *handler.BatchHandler
}

// Server is the HTTP + WebSocket API of the chart service.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in the middleware chain.
// hub and limiter may be nil.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/charts", handlers.Charts.CreateChart)
	mux.HandleFunc("GET /api/charts", handlers.Charts.ListCharts)
	mux.HandleFunc("GET /api/charts/{id}", handlers.Charts.GetChart)
	mux.HandleFunc("GET /api/house-systems", handlers.Charts.ListHouseSystems)

	if handlers.Batches != nil {
		mux.HandleFunc("POST /api/batches", handlers.Batches.StartBatch)
		mux.HandleFunc("GET /api/batches", handlers.Batches.ListBatches)
		mux.HandleFunc("GET /api/batches/{id}", handlers.Batches.GetBatch)
		mux.HandleFunc("GET /api/batches/{id}/export", handlers.Batches.GetExport)
	}

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	// Innermost first: auth runs after rate limiting so rejected keys still
	// count against the caller.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, healthPath)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		handler: h,
		logger:  logger.With(slog.String("component", "server")),
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
