package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"assetgen/internal/adapter/repo"
	"assetgen/internal/batch"
	"assetgen/internal/domain"
	"assetgen/internal/generation"
	"assetgen/internal/http/handlers"
	httpapi "assetgen/internal/http/httpapi"
	"assetgen/internal/infra"
	"assetgen/internal/pipeline"
	"assetgen/internal/providers/openai"
	"assetgen/internal/providers/replicate"
	"assetgen/internal/selector"
	"assetgen/internal/storage"
	"assetgen/internal/variants"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Provider clients. Without credentials the clients run in synthetic
	// mode, which keeps local development usable offline.
	openaiClient, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init openai client")
	}
	replicateClient, err := replicate.NewClient(replicate.Options{
		APIKey:  cfg.ReplicateAPIKey,
		BaseURL: cfg.ReplicateBaseURL,
		Model:   cfg.ReplicateModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init replicate client")
	}

	catalog := selector.DefaultCatalog()
	registry := generation.NewRegistry(
		generation.NewSingleImageAdapter(openaiClient, catalog.Prices, logger),
		generation.NewBatchAdapter(replicateClient, catalog.Prices, logger),
	)
	orchestrator, err := generation.NewOrchestrator(generation.OrchestratorOptions{
		Registry:  registry,
		Transform: generation.NewTransformAdapter(replicateClient, catalog.Prices, logger),
		Catalog:   catalog,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init orchestrator")
	}

	// Output storage: local tree, optionally mirrored to object storage.
	fileStore, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}
	var sink storage.AssetSink = fileStore
	if cfg.MirrorToObjects() {
		objects, err := storage.NewObjectStore(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure bucket")
		}
		sink = storage.NewMirroredSink(fileStore, objects, logger)
	}

	processor, err := variants.NewProcessor(variants.ProcessorOptions{
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init variant processor")
	}

	service, err := pipeline.NewService(pipeline.ServiceOptions{
		Source:       pipeline.NewFileSource(cfg.ProjectsDir),
		Orchestrator: orchestrator,
		Processor:    processor,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init pipeline service")
	}

	// Job store: Postgres when DATABASE_URL is set, Redis when REDIS_URL is
	// set, otherwise in-memory.
	var store domain.BatchJobStore
	switch {
	case cfg.DatabaseURL != "":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		store, err = repo.NewPostgresStore(ctx, pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init postgres job store")
		}
		logger.Info().Msg("using postgres job store")
	case cfg.RedisURL != "":
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		store = repo.NewRedisStore(client)
		logger.Info().Msg("using redis job store")
	default:
		store = repo.NewMemoryStore()
		logger.Info().Msg("using in-memory job store")
	}

	manager, err := batch.NewManager(batch.ManagerOptions{
		Store:              store,
		Runner:             service,
		Logger:             logger,
		DefaultConcurrency: cfg.DefaultConcurrency,
		PerProjectEstimate: cfg.PerProjectEstimate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init batch manager")
	}

	app := &handlers.App{
		Batches: manager,
		Runner:  service,
		Files:   fileStore,
		Logger:  logger,
	}
	router := httpapi.NewRouter(app, httpapi.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitPerMinute,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	manager.Close()
	logger.Info().Msg("server stopped")
}
