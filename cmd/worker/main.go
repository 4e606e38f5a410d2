package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cargofol/cargofol/internal/app"
	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/fx"
	jobmetrics "github.com/cargofol/cargofol/internal/jobs"
	"github.com/cargofol/cargofol/internal/platform/cache"
	"github.com/cargofol/cargofol/internal/platform/db"
	"github.com/cargofol/cargofol/internal/products"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, settingsService, logger)

	fxRepo := fx.NewRepository(pool)
	fxService := fx.NewService(fxRepo, settingsService, logger)

	metrics := jobmetrics.NewMetrics(nil)

	snapshotTask, err := jobs.NewFXSnapshotTask(time.Now().UTC())
	if err != nil {
		logger.Error("build fx snapshot task", slog.Any("error", err))
		os.Exit(1)
	}
	recostTask, err := jobs.NewRecostTask(time.Now().UTC())
	if err != nil {
		logger.Error("build recost task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFXSnapshot, Handler: jobs.NewFXSnapshotHandler(fxService, metrics, logger)},
			{Type: jobs.TaskRecost, Handler: jobs.NewRecostHandler(productsService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: recostTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
