// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/newthinker/sigrelay/internal/api/handler/api"
	"github.com/newthinker/sigrelay/internal/api/handler/web"
	"github.com/newthinker/sigrelay/internal/api/middleware"
	"github.com/newthinker/sigrelay/internal/metrics"
	"github.com/newthinker/sigrelay/internal/pattern"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

// Server represents the HTTP server for the relay
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	webhooks   *apihandler.WebhookHandler
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	APIKey          string
	TemplatesDir    string
	PublicURL       string
	RecentAPI       int
	RecentDashboard int
	MetricsPath     string
	// FundamentalsTimeout bounds upstream fetches per fundamentals request.
	FundamentalsTimeout time.Duration
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	Enhancer *pattern.Enhancer
	History  *signal.History
	// Overlay is nil when fundamentals are disabled.
	Overlay   apihandler.Overlay
	Notifiers apihandler.Dispatcher
	Metrics   *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Enhancer == nil || deps.History == nil {
		return nil, fmt.Errorf("enhancer and history are required")
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)
	handler = middleware.Recover(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	// Web UI routes
	webHandler, err := web.NewHandler(web.Config{
		TemplatesDir:  cfg.TemplatesDir,
		RecentSignals: cfg.RecentDashboard,
		PublicURL:     cfg.PublicURL,
	}, deps.History, deps.Enhancer.Table())
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.mux.HandleFunc("GET /{$}", webHandler.Dashboard)

	auth := middleware.APIKeyAuth(cfg.APIKey)

	// Signal intake
	s.webhooks = apihandler.NewWebhookHandler(deps.Enhancer, deps.History, deps.Notifiers, deps.Metrics, s.logger)
	s.mux.Handle("POST /webhook/tradingview", auth(http.HandlerFunc(s.webhooks.TradingView)))
	s.mux.HandleFunc("POST /test-signal", s.webhooks.TestSignal)

	// Read API
	signals := apihandler.NewSignalsHandler(deps.History, cfg.RecentAPI)
	s.mux.HandleFunc("GET /api/signals", signals.List)
	s.mux.HandleFunc("GET /api/performance", signals.Performance)

	notifiers := 0
	if deps.Notifiers != nil {
		notifiers = deps.Notifiers.Len()
	}
	health := apihandler.NewHealthHandler(deps.History, deps.Overlay != nil, notifiers)
	s.mux.HandleFunc("GET /api/health", health.Health)

	// Fundamental overlay
	if deps.Overlay != nil {
		fundamentals := apihandler.NewFundamentalsHandler(deps.Overlay, cfg.FundamentalsTimeout, s.logger)
		s.mux.Handle("POST /api/fundamentals/enhance", auth(http.HandlerFunc(fundamentals.Enhance)))
		s.mux.Handle("GET /api/fundamentals/{pair}", auth(http.HandlerFunc(fundamentals.Summary)))
	}

	// Metrics
	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, then waits for in-flight
// notifications until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.webhooks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("notifications still pending at shutdown")
		return ctx.Err()
	}
}
