package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	authService driving.AuthorizationService
	itemService driving.ItemService

	// Caller authentication; nil accepts the correlation from the request body
	callerAuth driven.CallerAuthenticator

	// Infrastructure checked by /ready, keyed by name
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthorizationService,
	itemService driving.ItemService,
	callerAuth driven.CallerAuthenticator, // can be nil
	checks map[string]Pinger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		logger:      logger,
		authService: authService,
		itemService: itemService,
		callerAuth:  callerAuth,
		checks:      checks,
	}

	s.setupRoutes()

	var h http.Handler = s.router
	h = NewCORSMiddleware(cfg.CORSOrigins).Handler(h)
	h = NewRecoveryMiddleware(logger).Handler(h)
	h = NewLoggingMiddleware(logger).Handler(h)
	h = NewRequestIDMiddleware().Handler(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	callerMiddleware := NewCallerMiddleware(s.callerAuth)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /api/v1/openapi.json", s.handleOpenAPI)

	s.router.Handle("GET /api/v1/integrations/providers",
		callerMiddleware.Authenticate(http.HandlerFunc(s.handleListProviders)))

	s.router.Handle("POST /api/v1/integrations/{provider}/authorize",
		callerMiddleware.Authenticate(http.HandlerFunc(s.handleAuthorize)))
	// Callback is public - receives browser redirects from providers
	s.router.HandleFunc("GET /api/v1/integrations/{provider}/oauth2callback", s.handleCallback)

	s.router.Handle("POST /api/v1/integrations/{provider}/credentials",
		callerMiddleware.Authenticate(http.HandlerFunc(s.handleGetCredentials)))
	s.router.Handle("DELETE /api/v1/integrations/{provider}/credentials",
		callerMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))

	s.router.Handle("POST /api/v1/integrations/{provider}/items",
		callerMiddleware.Authenticate(http.HandlerFunc(s.handleLoadItems)))
}

// Handler returns the fully wrapped root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr, "version", s.version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
