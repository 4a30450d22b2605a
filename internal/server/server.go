// Package server wires the application together: database, services,
// handlers, middleware, and routes, plus graceful startup and shutdown.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whyme0/chattings/internal/auth"
	"github.com/whyme0/chattings/internal/config"
	"github.com/whyme0/chattings/internal/handler"
	"github.com/whyme0/chattings/internal/mail"
	"github.com/whyme0/chattings/internal/metrics"
	"github.com/whyme0/chattings/internal/middleware"
	sqliteRepo "github.com/whyme0/chattings/internal/repository/sqlite"
	"github.com/whyme0/chattings/internal/service"
	"github.com/whyme0/chattings/internal/storage"
)

// Server owns the router and the resources that must be released on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: database, auth, mail,
// storage, services, handlers, routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) mailer() mail.Mailer {
	if s.config.MailAPIKey == "" {
		s.logger.Warn("MAIL_API_KEY not set, outbound mail will only be logged")
		return &mail.LogMailer{Logger: s.logger}
	}
	return mail.NewMailtrapMailer(
		s.config.MailAPIURL,
		s.config.MailAPIKey,
		s.config.MailFromEmail,
		s.config.MailFromName,
	)
}

func (s *Server) uploader() (storage.Uploader, error) {
	if s.config.CloudinaryCloudName == "" {
		s.logger.Warn("cloudinary credentials not set, avatar uploads disabled")
		return storage.Disabled{}, nil
	}
	return storage.NewCloudinaryStorage(
		s.config.CloudinaryCloudName,
		s.config.CloudinaryAPIKey,
		s.config.CloudinaryAPISecret,
	)
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sessions, err := auth.NewSessionService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating session service: %w", err)
	}
	uploader, err := s.uploader()
	if err != nil {
		return fmt.Errorf("creating avatar storage: %w", err)
	}

	passwords := auth.NewPasswordService()
	mailer := s.mailer()

	accountService := service.NewAccountService(
		s.db.Profiles(), s.db.Tokens(), passwords, mailer, s.config.BaseURL, s.logger)
	recoveryService := service.NewRecoveryService(
		s.db.Profiles(), s.db.Tokens(), passwords, mailer, s.config.BaseURL, s.logger)
	profileService := service.NewProfileService(
		s.db.Profiles(), s.db.Chats(), passwords, uploader, s.logger)
	chatService := service.NewChatService(s.db.Chats(), s.logger)

	authHandler := handler.NewAuthHandler(accountService, recoveryService, sessions, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/registration", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/emailverification/{token}", authHandler.HandleConfirmEmail)
		r.Get("/resend-confirmation-email", authHandler.HandleResendConfirmation)
		r.Post("/password-recovery", authHandler.HandleRequestRecovery)
		r.Get("/password-recovery/{token}", authHandler.HandleCheckRecovery)
		r.Post("/password-recovery/{token}", authHandler.HandleResetPassword)
	})

	s.router.Get("/profile/{username}", profileHandler.HandlePublicProfile)
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(sessions))
		r.Get("/api/me", profileHandler.HandleMe)
		r.Put("/profile/privacy", profileHandler.HandleUpdatePrivacy)
		r.Post("/profile/password", profileHandler.HandleChangePassword)
		r.Post("/profile/avatar", profileHandler.HandleUploadAvatar)
	})

	s.router.Route("/chats", func(r chi.Router) {
		r.With(auth.OptionalAuth(sessions)).Get("/", chatHandler.HandleList)
		r.Get("/{id}", chatHandler.HandleGet)
		r.Get("/{id}/members", chatHandler.HandleMembers)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(sessions))
			r.Post("/", chatHandler.HandleCreate)
			r.Put("/{id}", chatHandler.HandleUpdate)
			r.Delete("/{id}", chatHandler.HandleDelete)
			r.Post("/{id}/members", chatHandler.HandleJoin)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and closes the database.
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
			slog.String("base_url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
			slog.String("env", s.config.Env),
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
