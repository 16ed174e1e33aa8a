package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/newsdigest/internal/ai"
	"github.com/bilgisen/newsdigest/internal/api"
	"github.com/bilgisen/newsdigest/internal/archive"
	"github.com/bilgisen/newsdigest/internal/cache"
	"github.com/bilgisen/newsdigest/internal/config"
	"github.com/bilgisen/newsdigest/internal/digest"
	"github.com/bilgisen/newsdigest/internal/extract"
	"github.com/bilgisen/newsdigest/internal/logger"
	"github.com/bilgisen/newsdigest/internal/middleware"
	"github.com/bilgisen/newsdigest/internal/news"
	"github.com/bilgisen/newsdigest/internal/scheduler"
	"github.com/bilgisen/newsdigest/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const userAgent = "newsdigest/1.0 (+https://github.com/bilgisen/newsdigest)"

// digestStore is what the digest package needs from a storage backend.
type digestStore interface {
	digest.Store
	digest.Preferences
}

func main() {
	// Load and validate configuration
	cfg := config.Load()

	logOutput := cfg.LogFile
	if logOutput == "" {
		logOutput = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: logOutput,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("Starting newsdigest...")

	ctx := context.Background()

	// Redis backs the digest store and the extraction cache when configured.
	var redisClient *redis.Client
	if cfg.StoreDriver == config.StoreRedis {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		redisClient = client
		defer func() {
			log.Info().Msg("Closing Redis client...")
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing Redis client")
			}
		}()
	}

	var store digestStore
	switch cfg.StoreDriver {
	case config.StoreRedis:
		store = storage.NewRedis(redisClient, cfg.RedisPrefix)
	case config.StoreFile:
		fileStore, err := storage.NewFile(cfg.StoragePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize file storage")
		}
		store = fileStore
	default:
		log.Warn().Msg("Using in-memory storage, digests are lost on restart")
		store = storage.NewMemory()
	}

	// Upstream adapters
	source, err := news.NewClient(news.Options{
		BaseURL:    cfg.NewsAPIURL,
		APIKey:     cfg.NewsAPIKey,
		Timeout:    cfg.HTTPTimeout,
		RetryCount: cfg.NewsAPIRetryCount,
		RetryWait:  cfg.NewsAPIRetryWait,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize news client")
	}

	firecrawl, err := extract.NewFirecrawl(cfg.FirecrawlAPIURL, cfg.FirecrawlAPIKey, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firecrawl client")
	}
	chain := extract.Chain{firecrawl}
	if cfg.ExtractHTMLFallback {
		chain = append(chain, extract.NewHTML(cfg.HTTPTimeout, userAgent))
	}

	var textCache cache.TextCache = cache.NewMemory()
	if redisClient != nil {
		textCache = cache.NewRedisClient(redisClient, cfg.RedisPrefix)
	}
	extractor := extract.NewCached(chain, textCache, cfg.ExtractCacheTTL)

	summarizer, err := ai.NewSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
	}

	// Digest pipeline
	pipeline := digest.NewPipeline(source, extractor, summarizer, cfg.ArticleConcurrency)
	generator := digest.NewGenerator(store, store, pipeline)

	if cfg.ArchiveEnabled() {
		r2, err := archive.NewR2(ctx, archive.Options{
			Endpoint:  cfg.R2Endpoint,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			Region:    cfg.R2Region,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 archive")
		}
		generator.WithArchiver(r2)
		log.Info().Str("bucket", cfg.R2Bucket).Msg("Digest archive enabled")
	}

	service := digest.NewService(digest.NewGuard(store, cfg.Cooldown), generator, store, cfg.ManualTimeout)
	batch := digest.NewBatch(store, generator, cfg.BatchConcurrency, cfg.BatchTimeout)

	sched, err := scheduler.New(batch, cfg.DigestSchedule, cfg.Location())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	sched.Start()

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		AppName:      "newsdigest",
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.ManualTimeout + cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(service, sched), api.RouteConfig{
		JWTSecret:   cfg.JWTSecret,
		AdminAPIKey: cfg.AdminAPIKey,
		HistoryDays: cfg.HistoryDays,
	})

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Scheduler did not stop in time")
	}

	log.Info().Msg("Server exited properly")
}
