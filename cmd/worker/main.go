package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/markbang/cyop/internal/captions"
	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/db"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/metrics"
	"github.com/markbang/cyop/pkg/migrate"
	"github.com/markbang/cyop/pkg/redis"
	"github.com/markbang/cyop/pkg/vision"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	visionClient := vision.NewClient(cfg.Vision)
	worker, err := captions.NewWorker(captions.NewRepository(dbClient.DB()), visionClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create caption worker", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Redis:   redisClient,
		Worker:  worker,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"batch_limit":   cfg.Worker.BatchLimit,
		"concurrency":   cfg.Worker.Concurrency,
		"poll_interval": cfg.Worker.PollInterval.String(),
	})
	logg.Info(ctx, "starting caption worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "caption worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "caption worker shutting down gracefully")
}
