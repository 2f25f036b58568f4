// Package server wires the HTTP server: it opens the database, builds the
// gateway, session dependencies and handlers, and mounts the routes.
//
// ROUTES:
//
//	POST   /api/auth/signup                  register (email, password, user_id, name)
//	POST   /api/auth/signin                  sign in with email and password
//	POST   /api/auth/signout                 revoke the current token
//	GET    /api/auth/me                      the signed-in profile
//	GET    /auth/github/login                start GitHub sign-in
//	GET    /auth/github/callback             finish GitHub sign-in
//	GET    /api/users/{handle}               public profile with follow counts
//	GET    /api/users/{handle}/lives         attendance grouped by month
//	GET    /api/handles/{handle}/available   handle availability
//	GET    /api/lives/{id}                   one live event
//	PUT    /api/me/profile                   save the whole profile draft      (auth)
//	POST   /api/lives                        add a live event                  (auth)
//	PUT    /api/lives/{id}                   edit a live event                 (auth, owner)
//	DELETE /api/lives/{id}                   delete a live event               (auth, owner)
//	GET    /api/users/{handle}/follow        follow status                     (auth)
//	PUT    /api/users/{handle}/follow        follow                            (auth)
//	DELETE /api/users/{handle}/follow        unfollow                          (auth)
//	POST   /api/images                       upload an image (multipart)       (auth)
//	DELETE /api/images/*                     delete one of your images         (auth)
//	GET    /healthz                          database ping
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

	"github.com/livme/livme/internal/auth"
	"github.com/livme/livme/internal/gateway"
	"github.com/livme/livme/internal/handler"
	"github.com/livme/livme/internal/middleware"
	sqliteRepo "github.com/livme/livme/internal/repository/sqlite"
	"github.com/livme/livme/internal/session"
	"github.com/livme/livme/internal/storage"
)

type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CheckTimeout  time.Duration
	SecureCookies bool

	// GitHub sign-in is mounted only when both are set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the database connection and closes it on shutdown. The image
// store and revoker are owned by the caller. A nil image store disables
// uploads; a nil revoker falls back to an in-process denylist.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	images  storage.ObjectStore
	revoker auth.Revoker
}

func New(cfg Config, logger *slog.Logger, images storage.ObjectStore, revoker auth.Revoker) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if revoker == nil {
		revoker = auth.NewMemoryRevoker()
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		images:  images,
		revoker: revoker,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler is the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return err
	}

	gw := gateway.NewRemote(s.db.Profiles(), s.db.Lives(), s.db.Follows(), s.images, s.logger)
	deps := session.Dependencies{
		Identities: auth.NewIdentities(s.db.Identities(), auth.NewPasswordService(), s.logger),
		Gateway:    gw,
		Tokens:     tokens,
		Revoker:    s.revoker,
		Logger:     s.logger,
	}
	authn := auth.NewAuthenticator(tokens, s.revoker, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	checkTimeout := s.config.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}

	authHandler := handler.NewAuthHandler(deps, github, s.config.SecureCookies, s.logger)
	profileHandler := handler.NewProfileHandler(gw, deps, checkTimeout, s.logger)
	liveHandler := handler.NewLiveHandler(gw, s.logger)
	followHandler := handler.NewFollowHandler(gw, s.logger)
	imageHandler := handler.NewImageHandler(gw, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth/github", func(r chi.Router) {
		r.Get("/login", authHandler.HandleGitHubLogin)
		r.Get("/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignUp)
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/signout", authHandler.HandleSignOut)
			r.Get("/me", authHandler.HandleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.OptionalAuth)
			r.Get("/users/{handle}", profileHandler.HandleGet)
			r.Get("/users/{handle}/lives", liveHandler.HandleListByUser)
			r.Get("/handles/{handle}/available", profileHandler.HandleAvailability)
			r.Get("/lives/{id}", liveHandler.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Put("/me/profile", profileHandler.HandleUpdate)

			r.Post("/lives", liveHandler.HandleCreate)
			r.Put("/lives/{id}", liveHandler.HandleUpdate)
			r.Delete("/lives/{id}", liveHandler.HandleDelete)

			r.Get("/users/{handle}/follow", followHandler.HandleStatus)
			r.Put("/users/{handle}/follow", followHandler.HandleFollow)
			r.Delete("/users/{handle}/follow", followHandler.HandleUnfollow)

			r.Post("/images", imageHandler.HandleUpload)
			r.Delete("/images/*", imageHandler.HandleDelete)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
		// Uploads and inline data URLs make bodies larger than a typical API.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("images", s.images != nil),
			slog.String("revoker", fmt.Sprintf("%T", s.revoker)),
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
