// Package server wires the router, middleware, and all route definitions.
// It is the composition root: handlers, services, and the repository are
// assembled here and nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Mxlaser/projet-web/internal/auth"
	"github.com/Mxlaser/projet-web/internal/handler"
	"github.com/Mxlaser/projet-web/internal/middleware"
	sqliteRepo "github.com/Mxlaser/projet-web/internal/repository/sqlite"
	"github.com/Mxlaser/projet-web/internal/service"
	"github.com/Mxlaser/projet-web/internal/upload"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	UploadDir string
}

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	uploads *upload.Store
}

// New assembles the full dependency chain: database, upload store, token
// and password services, the service layer, handlers, and routes. Each
// layer receives only what it needs; handlers never touch the database.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	uploads, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating upload store: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		uploads: uploads,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests that drive the full stack
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// shutdown path. Safe to call from tests.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// The SPA client is served from another origin.
	s.router.Use(cors.AllowAll().Handler)

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	categoryService := service.NewCategoryService(s.db, s.logger)
	resourceService := service.NewResourceService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	resourceHandler := handler.NewResourceHandler(resourceService, s.uploads, s.logger)

	// Liveness probe.
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "API is running")
	})

	// Uploaded files are public by URL; the URL itself is the secret.
	fileServer := http.FileServer(http.Dir(s.uploads.Dir()))
	s.router.Handle(upload.URLPrefix+"*", http.StripPrefix(upload.URLPrefix, fileServer))

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/me", authHandler.HandleMe)

			r.Get("/categories", categoryHandler.HandleList)
			r.Post("/categories", categoryHandler.HandleCreate)

			r.Get("/resources", resourceHandler.HandleList)
			r.Post("/resources", resourceHandler.HandleCreate)
			r.Get("/resources/{id}", resourceHandler.HandleGet)
			r.Put("/resources/{id}", resourceHandler.HandleUpdate)
			r.Delete("/resources/{id}", resourceHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.uploads.Dir()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
