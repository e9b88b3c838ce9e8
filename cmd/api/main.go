// Copyright (c) 2026 Imma Platform. All rights reserved.

// Command api is the entry point for the Imma HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire token, mail, and object storage services.
//  7. Wire domain services and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/immahq/imma/internal/api"
	"github.com/immahq/imma/internal/auth"
	"github.com/immahq/imma/internal/platform/config"
	"github.com/immahq/imma/internal/platform/constants"
	"github.com/immahq/imma/internal/platform/mail"
	"github.com/immahq/imma/internal/platform/migration"
	"github.com/immahq/imma/internal/platform/objstore"
	pgstore "github.com/immahq/imma/internal/platform/postgres"
	redisstore "github.com/immahq/imma/internal/platform/redis"
	"github.com/immahq/imma/internal/platform/sec"
	"github.com/immahq/imma/internal/scholarship"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Imma] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Long-lived context for background workers (rate limiter cleanup),
	// cancelled when main returns.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform Services ──────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	mailSender := buildMailSender(cfg, log)

	blobStore, err := buildBlobStore(startupCtx, cfg, log)
	must(log, err, "initialize object storage")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckTokenStore: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	principalRepository := auth.NewPrincipalRepository(pool)
	tokenRepository := auth.NewTokenRepository(rdb)
	authService := auth.NewService(principalRepository, tokenRepository, jwtSvc, mailSender, blobStore, cfg.FrontendURL)
	authHandler := auth.NewHandler(authService)

	scholarshipRepository := scholarship.NewPostgresRepository(pool)
	scholarshipService := scholarship.NewService(scholarshipRepository, blobStore, log)
	scholarshipHandler := scholarship.NewHandler(scholarshipService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Auth:        authHandler,
		Scholarship: scholarshipHandler,
	}

	server := api.NewServer(appCtx, cfg, log, jwtSvc, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// buildMailSender returns the SMTP sender when a host is configured, or the
// log-only sender for local development.
func buildMailSender(cfg *config.Config, log *slog.Logger) mail.Sender {
	if cfg.SMTPHost == "" {
		log.Warn("smtp_not_configured", slog.String("fallback", "log_sender"))
		return mail.NewLogSender(log)
	}

	sender, err := mail.NewSMTPSender(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	})
	must(log, err, "initialize smtp sender")

	return sender
}

// buildBlobStore returns the S3-backed store when a bucket is configured, or
// nil when uploads are disabled (handlers reject uploads in that case).
func buildBlobStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (objstore.Storer, error) {
	if cfg.S3Bucket == "" {
		log.Warn("object_storage_not_configured", slog.String("fallback", "uploads_disabled"))
		return objstore.NewDisabledStore(), nil
	}

	return objstore.NewS3Store(ctx, objstore.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
