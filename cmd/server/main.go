package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/albiontools/market-helper-go/internal/aodp"
	"github.com/albiontools/market-helper-go/internal/api"
	"github.com/albiontools/market-helper-go/internal/api/handlers"
	"github.com/albiontools/market-helper-go/internal/cache"
	"github.com/albiontools/market-helper-go/internal/config"
	"github.com/albiontools/market-helper-go/internal/database"
	"github.com/albiontools/market-helper-go/internal/logging"
	"github.com/albiontools/market-helper-go/internal/services"
	"github.com/albiontools/market-helper-go/internal/telemetry"
)

func main() {
	// Optional .env file for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	tracing, err := telemetry.Init(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Environment: cfg.Environment,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize telemetry: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to ensure database schema: %v", err)
	}

	cacheTTL := time.Duration(cfg.AODP.CacheTTLSeconds) * time.Second
	responseCache := buildCache(ctx, cfg, cacheTTL, logger)

	aodpClient := aodp.NewClient(cfg.AODP, responseCache, logger)

	repo := database.NewTickRepository(db.Pool)
	pricing := services.NewPricingCalculator()
	merge := services.NewMergeService(repo, pricing, logger)
	ingest := services.NewIngestService(repo, logger)
	breeding := services.NewBreedingCalculator(aodpClient, pricing, cfg.Breeding.FarmFeedUnitCost, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	api.SetupRoutes(router, api.Handlers{
		Market:   handlers.NewMarketHandler(aodpClient, merge, pricing, cfg.Market, logger),
		Breeding: handlers.NewBreedingHandler(breeding, cfg.Market, logger),
		Ingest:   handlers.NewIngestHandler(ingest, logger),
		Cache:    handlers.NewCacheHandler(responseCache),
	}, db, responseCache, aodpClient.Limiter())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}
	logger.Info("server exited")
}

// buildCache picks Redis when configured and reachable, falling back to the
// in-process cache so a missing Redis never blocks startup.
func buildCache(ctx context.Context, cfg *config.Config, ttl time.Duration, logger *logrus.Logger) cache.ResponseCache {
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, using in-process cache")
		} else {
			return cache.NewRedisCache(client, ttl, logger)
		}
	}

	memory := cache.NewMemoryCache(ttl)
	memory.StartJanitor(ctx, time.Minute)
	return memory
}
