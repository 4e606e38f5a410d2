package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cargofol/cargofol/internal/app"
	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/auth"
	"github.com/cargofol/cargofol/internal/fx"
	"github.com/cargofol/cargofol/internal/observability"
	"github.com/cargofol/cargofol/internal/platform/cache"
	"github.com/cargofol/cargofol/internal/platform/db"
	"github.com/cargofol/cargofol/internal/products"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/upload"
	"github.com/cargofol/cargofol/internal/users"
	"github.com/cargofol/cargofol/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, settings cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	recorder := audit.NewRecorder(pool)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo, redisClient, recorder, logger)
	settingsHandler := settings.NewHandler(logger, settingsService)

	productsRepo := products.NewRepository(pool)
	metrics := observability.NewMetrics()

	productsService := products.NewService(productsRepo, settingsService, logger).WithMetrics(metrics)
	productsHandler := products.NewHandler(logger, productsService, recorder)

	fxRepo := fx.NewRepository(pool)
	fxService := fx.NewService(fxRepo, settingsService, logger)
	fxHandler := fx.NewHandler(logger, fxService)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	uploadService := upload.NewService(cfg.UploadConfig())
	uploadHandler := upload.NewHandler(logger, uploadService)

	usersRepo := users.NewRepository(pool)
	usersHandler := users.NewHandler(logger, usersRepo)

	auditHandler := audit.NewHandler(logger, recorder)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthService:     authService,
		AuthHandler:     authHandler,
		ProductsHandler: productsHandler,
		SettingsHandler: settingsHandler,
		AuditHandler:    auditHandler,
		FXHandler:       fxHandler,
		UploadHandler:   uploadHandler,
		UsersHandler:    usersHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
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
