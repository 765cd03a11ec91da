package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markbang/cyop/internal/captions"
	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/db"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/metrics"
	"github.com/markbang/cyop/pkg/redis"
)

const batchJobName = "caption_batch"

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client
	Worker  *captions.Worker
	Metrics *metrics.BatchJobMetrics
}

type Service struct {
	cfg     *config.Config
	logg    *logger.Logger
	db      *db.Client
	redis   *redis.Client
	worker  *captions.Worker
	metrics *metrics.BatchJobMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Worker == nil {
		return nil, errors.New("caption worker is required")
	}
	if params.Metrics == nil {
		return nil, errors.New("metrics collector is required")
	}

	return &Service{
		cfg:     params.Config,
		logg:    params.Logger,
		db:      params.DB,
		redis:   params.Redis,
		worker:  params.Worker,
		metrics: params.Metrics,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:    ":" + s.cfg.Worker.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logg.Error(ctx, "metrics server shutdown failed", err)
		}
	}()

	ticker := time.NewTicker(s.cfg.Worker.PollInterval)
	defer ticker.Stop()

	// Drain once on startup so a restart does not wait a full interval.
	s.runBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runBatch(ctx)
		}
	}
}

func (s *Service) runBatch(ctx context.Context) {
	start := time.Now()
	result, err := s.worker.ProcessPending(ctx, s.cfg.Worker.BatchLimit, s.cfg.Worker.Concurrency)
	s.metrics.ObserveDuration(batchJobName, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(batchJobName)
		s.logg.Error(ctx, "caption batch failed", err)
		return
	}

	s.metrics.IncSuccess(batchJobName)
	s.metrics.AddCaptions(batchJobName, "completed", result.Succeeded)
	s.metrics.AddCaptions(batchJobName, "rejected", result.Failed)

	if result.Processed == 0 {
		return
	}

	batchCtx := s.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	s.logg.Info(batchCtx, "caption batch finished")
	if jobErr := result.Err(); jobErr != nil {
		s.logg.Error(batchCtx, "caption batch had job failures", jobErr)
	}
}
