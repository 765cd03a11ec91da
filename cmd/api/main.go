package main

import (
	"context"
	"net/http"
	"os"

	"github.com/markbang/cyop/api/routes"
	"github.com/markbang/cyop/internal/captions"
	"github.com/markbang/cyop/internal/datasets"
	"github.com/markbang/cyop/internal/tasks"
	"github.com/markbang/cyop/internal/templates"
	"github.com/markbang/cyop/internal/uploads"
	"github.com/markbang/cyop/pkg/auth/session"
	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/db"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/migrate"
	"github.com/markbang/cyop/pkg/redis"
	"github.com/markbang/cyop/pkg/storage/s3"
	"github.com/markbang/cyop/pkg/webhook"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	signer, err := s3.NewSigner(cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create storage signer", err)
		os.Exit(1)
	}

	emitter := webhook.NewEmitter(cfg.Webhook, logg)

	captionService, err := captions.NewService(captions.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create caption service", err)
		os.Exit(1)
	}

	uploadService, err := uploads.NewService(uploads.NewRepository(dbClient.DB()), signer, cfg.Storage, cfg.Upload)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	taskService, err := tasks.NewService(tasks.NewRepository(dbClient.DB()), emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create task service", err)
		os.Exit(1)
	}

	templateService, err := templates.NewService(templates.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create template service", err)
		os.Exit(1)
	}

	datasetService, err := datasets.NewService(datasets.NewRepository(dbClient.DB()), emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create dataset service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			captionService,
			uploadService,
			taskService,
			templateService,
			datasetService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
