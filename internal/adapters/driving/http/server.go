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

	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	version     string
	frontendURL string

	// Services
	authService       driving.AuthService
	userService       driving.UserService
	oauthService      driving.OAuthService
	credentialService driving.CredentialService
	dispatchService   driving.DispatchService

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// FrontendURL is where the OAuth callback redirects the browser
	// after a connection attempt.
	FrontendURL string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		Version:     "dev",
		FrontendURL: "http://localhost:3000",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	userService driving.UserService,
	oauthService driving.OAuthService,
	credentialService driving.CredentialService,
	dispatchService driving.DispatchService,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		frontendURL:       cfg.FrontendURL,
		authService:       authService,
		userService:       userService,
		oauthService:      oauthService,
		credentialService: credentialService,
		dispatchService:   dispatchService,
		db:                db,
		redisClient:       redisClient,
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
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogout)))
	s.router.Handle("POST /api/v1/auth/password",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChangePassword)))

	// User endpoints
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))

	// Admin-only user management
	s.router.Handle("GET /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListUsers))))
	s.router.Handle("POST /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateUser))))
	s.router.Handle("PUT /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateUser))))
	s.router.Handle("PUT /api/v1/users/{id}/password",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSetUserPassword))))
	s.router.Handle("DELETE /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteUser))))

	// Platform connection endpoints (authenticated)
	s.router.Handle("POST /api/v1/social/{platform}/connect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnect)))
	// Callback is public - receives redirects from the platforms
	s.router.HandleFunc("GET /api/v1/oauth/callback", s.handleOAuthCallback)

	// Token endpoints (authenticated)
	s.router.Handle("GET /api/v1/tokens",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListTokens)))
	s.router.Handle("GET /api/v1/tokens/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetToken)))
	s.router.Handle("DELETE /api/v1/tokens/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteToken)))
	s.router.Handle("POST /api/v1/tokens/refresh",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRefreshTokens)))
	s.router.Handle("POST /api/v1/tokens/{id}/validate",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleValidateToken)))

	// Dispatch endpoint (authenticated)
	s.router.Handle("POST /api/v1/social/{platform}/{operation}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDispatch)))
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
