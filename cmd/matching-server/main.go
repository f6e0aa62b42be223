// cmd/matching-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contractor-matching/internal/assignment"
	"contractor-matching/internal/cache"
	"contractor-matching/internal/common/config"
	"contractor-matching/internal/common/database"
	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/common/observability"
	"contractor-matching/internal/directory"
	"contractor-matching/internal/httpapi"
	"contractor-matching/internal/matching"
	"contractor-matching/internal/models"
	"contractor-matching/internal/search"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting matching server...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	if err := esClient.EnsureIndex(ctx); err != nil {
		// Matching degrades to the Postgres fallback when the index is
		// unusable, so a provisioning failure is not fatal.
		zapLog.Warn("contractor index provisioning failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire the matching pipeline ---
	contractorCache := cache.New(redisClient.Client, cache.TTLs{
		Profile:      time.Duration(cfg.Matching.ProfileCacheTTL) * time.Second,
		Search:       time.Duration(cfg.Matching.SearchCacheTTL) * time.Second,
		Availability: time.Duration(cfg.Matching.AvailabilityCacheTTL) * time.Second,
	}, log)

	store := directory.NewStore(pg.DB, log)
	reader := directory.NewReader(store, contractorCache)

	esSearcher := search.NewESSearcher(esClient.Client, cfg.Database.Elasticsearch.Index, log)
	pgFallback := search.NewPostgresFallback(store, log)

	matcher := matching.NewCoordinator(matching.Options{
		DefaultRadiusMiles: cfg.Matching.DefaultRadiusMiles,
		MaxRadiusMiles:     cfg.Matching.MaxRadiusMiles,
		MaxResults:         cfg.Matching.MaxResults,
		PipelineBudget:     time.Duration(cfg.Matching.PipelineBudget) * time.Millisecond,
		Weights: models.ScoreWeights{
			Rating:       cfg.Matching.Weights.Rating,
			Distance:     cfg.Matching.Weights.Distance,
			ResponseTime: cfg.Matching.Weights.ResponseTime,
		},
	}, contractorCache, reader, esSearcher, pgFallback, log)

	assigner := assignment.NewCoordinator(
		pg.DB, contractorCache,
		time.Duration(cfg.Assignment.LockTimeout)*time.Millisecond,
		log,
	)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	api := httpapi.NewServer(matcher, assigner, map[string]httpapi.Pinger{
		"postgres":      pingAdapter(func() error { return pg.Ping(context.Background()) }),
		"redis":         pingAdapter(func() error { return redisClient.Ping(context.Background()) }),
		"elasticsearch": pingAdapter(esClient.Ping),
	}, obs, log)
	api.Register(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Matching server stopped gracefully")
}

// pingAdapter lets a closure satisfy httpapi.Pinger.
type pingAdapter func() error

func (p pingAdapter) Ping() error { return p() }
