package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"review-responder/internal/analytics"
	"review-responder/internal/api"
	"review-responder/internal/common/aws"
	"review-responder/internal/common/config"
	"review-responder/internal/common/database"
	httpx "review-responder/internal/common/http"
	"review-responder/internal/common/logger"
	"review-responder/internal/common/observability"
	"review-responder/internal/generation"
	"review-responder/internal/notify"
	"review-responder/internal/research"
	"review-responder/internal/store"
	"review-responder/internal/usage"
)

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
			delay *= 2
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

	zapLog.Info("Starting review responder...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, cfg.Observability.JaegerEndpoint)
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

	// --- Init Elasticsearch (optional) with retry ---
	var indexer api.AnalyticsIndexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
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
		indexer = analytics.NewIndexer(esClient, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch not configured, analytics indexing disabled")
	}

	// --- Generation pipeline ---
	genCfg := &generation.Config{
		BaseURL:     cfg.APIs.Completion.BaseURL,
		APIKey:      cfg.APIs.Completion.APIKey,
		Model:       cfg.APIs.Completion.Model,
		Temperature: cfg.APIs.Completion.Temperature,
		MaxTokens:   cfg.APIs.Completion.MaxTokens,
		Timeout:     config.GetDuration(cfg.APIs.Completion.Timeout),
	}
	genClient := generation.NewClient(genCfg, httpx.NewClient(0), log)
	generator := generation.NewService(genClient, log)

	// --- Usage limiter ---
	limiter := usage.NewLimiter(usage.NewRedisCounterStore(redisClient.Client), cfg.Usage, log)

	// --- Stores ---
	profiles := store.NewProfileStore(pg, log)
	history := store.NewHistoryStore(pg, log)

	// --- Notifications (optional) ---
	var notifier api.OwnerNotifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		templates, err := notify.LoadTemplateRegistry(cfg.Notifications.TemplateRegistryPath)
		if err != nil {
			zapLog.Fatal("template registry load failed", zap.Error(err))
		}
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client init failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client init failed", zap.Error(err))
		}
		notifier = notify.NewNotifier(cfg.Notifications, sesClient, snsClient, templates, log)
		zapLog.Info("Notifications enabled")
	} else {
		zapLog.Info("Notifications disabled")
	}

	// --- Research helper (optional) ---
	var researcher api.BusinessResearcher
	if cfg.APIs.Research.APIKey != "" {
		researcher = research.NewResearcher(
			cfg.APIs.Research.APIKey,
			cfg.APIs.Research.Model,
			config.GetDuration(cfg.APIs.Research.Timeout),
			nil,
			log,
		)
		zapLog.Info("Research helper enabled")
	}

	// --- API server ---
	server := api.NewServer(*cfg, api.Deps{
		Generator:     generator,
		Limiter:       limiter,
		Profiles:      profiles,
		History:       history,
		Indexer:       indexer,
		Notifier:      notifier,
		Researcher:    researcher,
		Observability: obs,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.GetDuration(cfg.Server.Timeout),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Review responder stopped gracefully")
}
