// Package main wires together the event scraper service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/kindredpress/event-scraper/internal/adapters"
	"github.com/kindredpress/event-scraper/internal/api"
	"github.com/kindredpress/event-scraper/internal/clock/system"
	"github.com/kindredpress/event-scraper/internal/config"
	"github.com/kindredpress/event-scraper/internal/database"
	"github.com/kindredpress/event-scraper/internal/fetch"
	"github.com/kindredpress/event-scraper/internal/id/uuid"
	"github.com/kindredpress/event-scraper/internal/logging"
	"github.com/kindredpress/event-scraper/internal/metrics"
	"github.com/kindredpress/event-scraper/internal/orchestrator"
	pubsubpublisher "github.com/kindredpress/event-scraper/internal/publisher/pubsub"
	"github.com/kindredpress/event-scraper/internal/relevance"
	"github.com/kindredpress/event-scraper/internal/scraper"
	"github.com/kindredpress/event-scraper/internal/storage/gcs"
	"github.com/kindredpress/event-scraper/internal/storage/local"
	"github.com/kindredpress/event-scraper/internal/storage/memory"
	"github.com/kindredpress/event-scraper/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	metrics.Init()

	if cfg.DB.MigrateOnStart {
		if err := database.RunMigrations(cfg.DB.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
		MinConns: int32(cfg.DB.MinConns),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	sources, err := postgres.NewSourceStore(pool)
	if err != nil {
		return err
	}
	events, err := postgres.NewEventStore(pool)
	if err != nil {
		return err
	}
	cache, err := postgres.NewCacheStore(pool)
	if err != nil {
		return err
	}
	settings, err := postgres.NewSettingsStore(pool)
	if err != nil {
		return err
	}

	fetcher, closeFetcher := buildFetcher(cfg.Fetch, logger)
	defer closeFetcher()

	archive, err := buildArchive(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	var publisher scraper.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		p := pubsubpublisher.New(client)
		defer p.Stop()
		publisher = p
	}

	registry := adapters.NewRegistry(relevance.NewScorer(), system.New())

	orch, err := orchestrator.New(orchestrator.Config{
		BatchSize:        cfg.Scraper.BatchSize,
		MaxSources:       cfg.Scraper.MaxSources,
		RecencyWindow:    cfg.Scraper.RecencyWindow(),
		BatchDelay:       cfg.Scraper.BatchDelay(),
		PersistThreshold: cfg.Scraper.PersistThreshold,
		CompletionTopic:  cfg.PubSub.Topic,
	}, orchestrator.Deps{
		Sources:   sources,
		Events:    events,
		Cache:     cache,
		Settings:  settings,
		Fetcher:   fetcher,
		Extractor: registry,
		Publisher: publisher,
		Archive:   archive,
		Clock:     system.New(),
		IDs:       uuid.New(),
		Logger:    logger.Named("orchestrator"),
	})
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	apiServer := api.NewServer(orch, pool.Ping, api.Config{
		AuthEnabled: cfg.Auth.Enabled,
		APIKey:      cfg.Auth.APIKey,
		Timeout:     cfg.ServerTimeout(),
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// buildFetcher assembles the strategy chain in cost order: premium proxy
// when a credential is present, then direct, then the open relays, then
// headless rendering when enabled.
func buildFetcher(cfg config.FetchConfig, logger *zap.Logger) (scraper.Fetcher, func()) {
	var strategies []fetch.Strategy
	closeFn := func() {}

	if premium := fetch.NewPremium(fetch.PremiumConfig{
		APIKey:     cfg.PremiumAPIKey,
		Endpoint:   cfg.PremiumEndpoint,
		Timeout:    time.Duration(cfg.PremiumTimeoutSeconds) * time.Second,
		MaxRetries: cfg.PremiumMaxRetries,
	}); premium != nil {
		strategies = append(strategies, premium)
	}

	strategies = append(strategies,
		fetch.NewDirect(time.Duration(cfg.DirectTimeoutSeconds)*time.Second),
		fetch.NewRelay(time.Duration(cfg.RelayTimeoutSeconds)*time.Second),
	)

	if cfg.Headless.Enabled {
		headless, err := fetch.NewHeadless(fetch.HeadlessConfig{
			MaxParallel: cfg.Headless.MaxParallel,
			NavTimeout:  time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless init failed", zap.Error(err))
		} else {
			strategies = append(strategies, headless)
			closeFn = headless.Close
		}
	}

	return fetch.NewChain(logger.Named("fetch"), strategies...), closeFn
}

func buildArchive(ctx context.Context, cfg config.ArchiveConfig) (scraper.BlobStore, error) {
	switch cfg.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return memory.NewBlobStore(), nil
	default:
		return nil, nil
	}
}
