// Package server assembles the HTTP and WebSocket API of the bond engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/server/handler"
	"github.com/curvelabs/bondengine/internal/server/middleware"
	"github.com/curvelabs/bondengine/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit is requests per RateWindow per client IP. Zero disables
	// limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Bonds    *handler.BondHandler
	Trades   *handler.TradeHandler
	Accounts *handler.AccountHandler
	Admin    *handler.AdminHandler
	Events   *handler.EventsHandler
}

// Server is the HTTP + WebSocket API server for the bond engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limiting, auth, logging, CORS) wired up. The
// limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required once the chain allows it through).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Bond endpoints.
	mux.HandleFunc("POST /api/bonds", handlers.Bonds.CreateBond)
	mux.HandleFunc("GET /api/bonds", handlers.Bonds.ListBonds)
	mux.HandleFunc("GET /api/bonds/{id}", handlers.Bonds.GetBond)
	mux.HandleFunc("PUT /api/bonds/{id}/price", handlers.Bonds.SetPurchasePrice)

	// Trading endpoints.
	mux.HandleFunc("GET /api/bonds/{id}/quote", handlers.Trades.Quote)
	mux.HandleFunc("POST /api/bonds/{id}/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/bonds/{id}/sell", handlers.Trades.Sell)

	// Account endpoints.
	mux.HandleFunc("GET /api/accounts/{account}/withdrawable", handlers.Accounts.Withdrawable)
	mux.HandleFunc("POST /api/withdraw", handlers.Accounts.Withdraw)

	// Admin endpoints.
	mux.HandleFunc("POST /api/admin/stop", handlers.Admin.Stop)
	mux.HandleFunc("GET /api/admin/network-fee", handlers.Admin.GetNetworkFee)
	mux.HandleFunc("PUT /api/admin/network-fee", handlers.Admin.SetNetworkFee)

	// Journal endpoint.
	if handlers.Events != nil {
		mux.HandleFunc("GET /api/events", handlers.Events.List)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
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
