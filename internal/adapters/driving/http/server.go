// Package http exposes the sync engine over HTTP: the interactive consent
// and sync endpoints the browser drives, the secret-guarded scheduled
// trigger, and the record API for dashboards.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/ports/driven"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	connectService driving.ConnectService
	syncService    driving.SyncService
	healthService  driving.HealthRecordService

	// Credential store variants for the two trigger paths
	sessionCredentials driven.CredentialStore
	durableCredentials driven.CredentialStore

	sessionTokens driven.SessionTokens
	cronSecret    string

	// redirectBase is where the consent callback sends the browser.
	redirectBase string
	secureCookie bool

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// CronSecret guards GET /cron/sync. Empty disables the endpoint.
	CronSecret string

	// RedirectBase is the frontend URL to send the browser back to after
	// the consent callback. Defaults to "/".
	RedirectBase string

	// SecureCookie controls the session cookie's Secure flag.
	SecureCookie bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		RedirectBase: "/",
		SecureCookie: true,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	connectService driving.ConnectService,
	syncService driving.SyncService,
	healthService driving.HealthRecordService,
	sessionCredentials driven.CredentialStore,
	durableCredentials driven.CredentialStore,
	sessionTokens driven.SessionTokens,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	if cfg.RedirectBase == "" {
		cfg.RedirectBase = "/"
	}

	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		connectService:     connectService,
		syncService:        syncService,
		healthService:      healthService,
		sessionCredentials: sessionCredentials,
		durableCredentials: durableCredentials,
		sessionTokens:      sessionTokens,
		cronSecret:         cfg.CronSecret,
		redirectBase:       cfg.RedirectBase,
		secureCookie:       cfg.SecureCookie,
		db:                 db,
		redisClient:        redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	session := NewSessionMiddleware(s.sessionTokens, s.secureCookie)
	cron := NewCronMiddleware(s.cronSecret)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Consent flow. A first visit has no session yet, so these mint one.
	s.router.Handle("GET /connect",
		session.Ensure(http.HandlerFunc(s.handleConnect)))
	s.router.Handle("GET /connect/callback",
		session.Ensure(http.HandlerFunc(s.handleConnectCallback)))

	// Interactive sync and disconnect need an established session.
	s.router.Handle("GET /sync",
		session.Require(http.HandlerFunc(s.handleSync)))
	s.router.Handle("POST /disconnect",
		session.Require(http.HandlerFunc(s.handleDisconnect)))

	// Scheduled trigger, guarded by the cron secret.
	s.router.Handle("GET /cron/sync",
		cron.Authorize(http.HandlerFunc(s.handleCronSync)))

	// Record API for dashboards.
	s.router.HandleFunc("GET /api/v1/health/records", s.handleListRecords)
	s.router.HandleFunc("POST /api/v1/health/records", s.handleCreateRecord)
	s.router.HandleFunc("DELETE /api/v1/health/records/{id}", s.handleDeleteRecord)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
