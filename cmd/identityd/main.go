package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-platform/meridian-identity/internal/app"
	"github.com/meridian-platform/meridian-identity/internal/auth"
	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/observability"
	"github.com/meridian-platform/meridian-identity/internal/platform/cache"
	"github.com/meridian-platform/meridian-identity/internal/platform/db"
	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec := token.NewCodec(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	refreshStore := token.NewRefreshStore(redisClient, cfg.RefreshTokenTTL)
	signer := s2s.NewSigner(cfg.ServiceSecret)

	headers := s2s.DefaultHeaders
	headers.ServiceName = cfg.ServiceNameHeader
	headers.ServiceSignature = cfg.ServiceSigHeader

	metrics := observability.NewMetrics()

	guards := guard.Middleware{
		Guard:   guard.New(codec, signer),
		Headers: headers,
		Logger:  logger,
		Denials: metrics,
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, codec, refreshStore, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(logger, authService, guards, app.CredentialRateLimit(), metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
