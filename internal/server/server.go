package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkpost/apiserver/config"
	"github.com/inkpost/apiserver/internal/handlers"
	"github.com/inkpost/apiserver/internal/mq"
	"github.com/inkpost/apiserver/internal/observability"
	"github.com/inkpost/apiserver/internal/services"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	repos      Repositories
	broker     mq.Backend
	logger     *slog.Logger
}

// New opens the configured store and broker and builds the API router.
// It fails before touching any backend when JWT_SECRET is missing.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}

	metrics := observability.NewMetrics()

	var events services.EventPublisher
	if broker != nil {
		events = eventPublisher{backend: broker, metrics: metrics}
	}

	authService := services.NewAuthService(repos.Users, tokens, logger)
	postService := services.NewPostService(repos.Posts, events, cfg.EventsChannel, logger)
	authMiddleware := handlers.RequireAuth(tokens)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(logger),
		middleware.Timeout(timeout),
		secureHeaders(logger),
		metrics.Middleware,
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit(cfg.AuthRateLimit))
			handlers.AuthRouter(r, authService, authMiddleware, logger)
		})
		r.Route("/post", func(r chi.Router) {
			handlers.PostRouter(r, postService, authMiddleware, logger)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		repos:      repos,
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, and then releases the broker and store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if cerr := s.broker.Close(); cerr != nil {
			s.logger.Warn("failed to close mq", slog.Any("error", cerr))
		}
	}
	if cerr := s.repos.Close(); cerr != nil {
		s.logger.Warn("failed to close store", slog.Any("error", cerr))
	}
	return err
}
