package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/absorbot/internal/domain"
	"github.com/alanyoungcy/absorbot/internal/server/handler"
	"github.com/alanyoungcy/absorbot/internal/server/middleware"
	"github.com/alanyoungcy/absorbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string             // if empty, authentication is disabled
	Limiter     domain.RateLimiter // if nil, per-client rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health          *handler.HealthHandler
	Status          *handler.StatusHandler
	Orders          *handler.OrderHandler
	Absorption      *handler.AbsorptionHandler
	Strategy        *handler.StrategyHandler
	StrategyRuntime *handler.StrategyRuntimeHandler
}

// Server is the headless HTTP + WebSocket API server for the absorption bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Backend status.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Order endpoints.
	mux.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)

	// Absorption event endpoints.
	mux.HandleFunc("GET /api/absorption/recent", handlers.Absorption.ListRecent)
	mux.HandleFunc("GET /api/absorption/{asset_id}", handlers.Absorption.ListByAsset)

	// Strategy config endpoints.
	mux.HandleFunc("GET /api/strategy/config", handlers.Strategy.GetConfig)
	mux.HandleFunc("PUT /api/strategy/config", handlers.Strategy.UpdateConfig)

	// Strategy runtime endpoints.
	mux.HandleFunc("GET /api/strategy/active", handlers.StrategyRuntime.GetActive)
	mux.HandleFunc("POST /api/strategy/active", handlers.StrategyRuntime.SetActive)
	mux.HandleFunc("GET /api/strategy/list", handlers.StrategyRuntime.List)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply per-client rate limiting when a limiter is configured.
	if cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter, 60, time.Minute)(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

