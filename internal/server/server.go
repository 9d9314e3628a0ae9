// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built here and handed
// down, so no other package constructs its own collaborators.
//
//	config.Config → sqlite.DB → services → handlers → chi routes
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sakif/snippet-api/internal/auth"
	"github.com/sakif/snippet-api/internal/config"
	"github.com/sakif/snippet-api/internal/handler"
	"github.com/sakif/snippet-api/internal/highlight"
	"github.com/sakif/snippet-api/internal/middleware"
	sqliteRepo "github.com/sakif/snippet-api/internal/repository/sqlite"
	"github.com/sakif/snippet-api/internal/service"
)

// Server owns the router and the database connection. The database is
// closed when Start returns, or by Close for servers that never start.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
	limiter  *middleware.IPRateLimiter
	done     chan struct{}
}

// New opens (and migrates) the database at cfg.DBPath and builds the server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithDB(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB builds the server on an already migrated database.
func NewWithDB(cfg *config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
		limiter:  middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, logger),
		done:     make(chan struct{}),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                            API root
//	       /snippets/...                see handler.SnippetHandler.Routes
//	       /users/...                   see handler.UserHandler.Routes
//	POST   /auth/token                  password login → bearer token
//	POST   /auth/logout                 clear the token cookie
//	GET    /auth/me                     current user (auth required)
//	GET    /auth/github/{login,callback} OAuth, only when configured
//	GET    /metrics                     prometheus
//
// MIDDLEWARE ORDER:
// Logging and metrics wrap everything, including panics turned into 500s
// by Recoverer. The rate limiter runs before Identify so that throttled
// requests never reach bcrypt.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.jwtSecret(), s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.db.Users(), tokens, auth.NewPasswordService(), s.logger)
	snippetService := service.NewSnippetService(s.db, s.config.Mode(), highlight.New(), s.logger)
	userService := service.NewUserService(s.db.Users(), s.db, s.logger)

	rep := handler.Representation{Hyperlinked: s.config.Hyperlinked, BaseURL: s.config.BaseURL}

	var github handler.OAuthProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.CallbackURL())
	}

	snippetHandler := handler.NewSnippetHandler(handler.AllCapabilities(snippetService), rep, s.logger)
	userHandler := handler.NewUserHandler(userService, rep, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.NewMetrics(s.registry).Handler)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(s.limiter.Handler)
	s.router.Use(auth.Identify(tokens, authService))

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	// === API Routes ===
	s.router.Get("/", rep.HandleRoot)
	s.router.Route("/snippets", snippetHandler.Routes)
	s.router.Route("/users", userHandler.Routes)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.HandleToken)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(auth.RequireAuth).Get("/me", authHandler.HandleMe)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.logger.Info("routes configured",
		slog.String("accessMode", string(s.config.Mode())),
		slog.Bool("hyperlinked", s.config.Hyperlinked),
		slog.Bool("github", github != nil),
	)
	return nil
}

// jwtSecret returns JWT_SECRET, or a random per-process secret when unset.
// Tokens signed with a random secret stop validating on restart.
func (s *Server) jwtSecret() string {
	if s.config.JWTSecret != "" {
		return s.config.JWTSecret
	}

	s.logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("server: reading random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()
	defer close(s.done)

	s.limiter.StartCleanup(10*time.Minute, s.done)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
