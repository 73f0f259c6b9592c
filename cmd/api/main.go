package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"shaggydog/internal/adapter/repo"
	"shaggydog/internal/http/handlers"
	httpapi "shaggydog/internal/http/httpapi"
	"shaggydog/internal/infra"
	"shaggydog/internal/infra/geoip"
	"shaggydog/internal/pipeline"
	"shaggydog/internal/storage"
	"shaggydog/internal/vision"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	country, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if closer, ok := country.(*geoip.Resolver); ok {
		defer closer.Close()
	}

	visionClient, err := vision.NewClient(vision.Options{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		DetectModel:         cfg.DetectModel,
		DetectFallbackModel: cfg.DetectFallbackModel,
		HTTPClient:          &http.Client{Timeout: 120 * time.Second},
		Logger:              &logger,
		MaxRetries:          uint64(cfg.EditRetries),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure vision client")
	}

	mirror, err := buildMirror(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mirror storage")
	}
	if mirror == nil {
		logger.Info().Msg("image mirroring disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(registry)

	jobs := repo.NewJobRepository(pool)
	users := repo.NewUserRepository(pool)

	executor := pipeline.NewExecutor(jobs, visionClient, visionClient, mirror, logger, pipeline.Models{
		DalleEdit: cfg.DalleEditModel,
		GPTEdit:   cfg.GPTEditModel,
	}, metrics)
	dispatcher := pipeline.NewDispatcher(executor, cfg.PipelineWorkers, logger)
	dispatcher.Start(ctx)

	app := &handlers.App{
		Users:          users,
		Jobs:           jobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		Country:         country,
		Registry:        registry,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := dispatcher.Stop(); err != nil {
		logger.Error().Err(err).Msg("failed to drain dispatcher")
	}
	logger.Info().Msg("server stopped")
}

func buildMirror(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	switch cfg.MirrorBackend {
	case "":
		return nil, nil
	case "filesystem":
		path := cfg.StoragePath
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		return storage.NewFileStore(path)
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown MIRROR_BACKEND %q", cfg.MirrorBackend)
	}
}
