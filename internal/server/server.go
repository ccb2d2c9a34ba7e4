// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and services into the HTTP
// server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/ipo-allotment/server/internal/config"
	"codeberg.org/ipo-allotment/server/internal/database"
	"codeberg.org/ipo-allotment/server/internal/handlers"
	"codeberg.org/ipo-allotment/server/internal/i18n"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/account"
	"codeberg.org/ipo-allotment/server/internal/services/allotment"
	"codeberg.org/ipo-allotment/server/internal/services/email"
	"codeberg.org/ipo-allotment/server/internal/services/otp"
	"codeberg.org/ipo-allotment/server/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// Services bundles the components behind the HTTP layer.
type Services struct {
	Sessions *session.Authenticator
	Accounts *account.Service
	Manager  *allotment.Manager
}

// NewServices builds the services on top of repo.
func NewServices(cfg *config.Config, repo *repository.Repository, codes otp.Store, mailer email.Sender) *Services {
	return &Services{
		Sessions: session.New(repo),
		Accounts: account.NewService(repo, codes, mailer, account.Options{
			CodeTTL:            cfg.OTP.TTL,
			BcryptCost:         cfg.Auth.BcryptCost,
			TempPasswordLength: cfg.Auth.TempPasswordLength,
		}),
		Manager: allotment.NewManager(repo),
	}
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"otp_store", cfg.OTP.Store,
	)

	// Database, with migrations applied
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository
	repo := repository.New(db)

	// One-time codes
	codes, closeCodes, err := newCodeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeCodes(); closeErr != nil {
			slog.Error("failed to close code store", "error", closeErr)
		}
	}()

	// Mail
	mailer, err := email.New(&cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to configure email: %w", err)
	}
	if _, disabled := mailer.(email.Disabled); disabled {
		slog.Warn("smtp not configured, registration and recovery mails will fail")
	}

	svc := NewServices(cfg, repo, codes, mailer)

	// Default admin
	if cfg.Auth.AdminUsername != "" {
		if adminErr := svc.Accounts.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); adminErr != nil {
			return fmt.Errorf("failed to ensure admin: %w", adminErr)
		}
	}

	e := NewEcho(cfg, svc)

	// Start server
	return startWithGracefulShutdown(e, cfg)
}

// NewEcho returns an Echo instance with middleware and routes installed.
func NewEcho(cfg *config.Config, svc *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, svc)
	return e
}

func setupRoutes(e *echo.Echo, svc *Services) {
	h := handlers.New(svc.Manager)
	a := handlers.NewAuth(svc.Sessions, svc.Accounts)
	authed := requireAuth(svc.Sessions)

	e.GET("/health", h.Health)

	// Authentication
	g := e.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout, authed)
	g.GET("/verify", a.Verify, authed)
	g.POST("/register/send-otp", a.RegisterSendOTP)
	g.POST("/register/verify-otp", a.RegisterVerifyOTP)
	g.POST("/forgot-password/send-otp", a.ForgotSendOTP)
	g.POST("/forgot-password/verify-otp", a.ForgotVerifyOTP)

	// Allotment API
	e.GET("/api", h.APIGet, authed)
	e.POST("/api", h.APIPost, authed)
}

// newCodeStore returns the configured one-time code store and a function
// releasing its resources.
func newCodeStore(ctx context.Context, cfg *config.Config) (otp.Store, func() error, error) {
	if cfg.OTP.Store != "redis" {
		return otp.NewMemoryStore(cfg.OTP.Length), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return otp.NewRedisStore(client, cfg.Redis.Prefix, cfg.OTP.Length), client.Close, nil
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	// Setup TLS
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	// Channel for server errors
	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL, "tls", tlsResult.Mode)
		var serveErr error
		if tlsResult.Mode == TLSModeManual {
			serveErr = startTLSServer(e, addr, tlsResult.TLSConfig)
		} else {
			serveErr = e.Start(addr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	e.TLSServer.Handler = e
	return e.TLSServer.Serve(e.TLSListener)
}
