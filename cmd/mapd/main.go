package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/svg-world-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/svg-world-map/internal/adapter/kafka"
	"github.com/couchcryptid/svg-world-map/internal/adapter/postgres"
	"github.com/couchcryptid/svg-world-map/internal/adapter/source"
	"github.com/couchcryptid/svg-world-map/internal/adapter/svg"
	"github.com/couchcryptid/svg-world-map/internal/config"
	"github.com/couchcryptid/svg-world-map/internal/observability"
	"github.com/couchcryptid/svg-world-map/internal/pipeline"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	style, err := config.LoadStyle(cfg.StylePath)
	if err != nil {
		logger.Error("failed to load map style", "error", err)
		os.Exit(1)
	}
	metadata, err := source.LoadMetadataFile(cfg.MetadataPath)
	if err != nil {
		logger.Error("failed to load region metadata", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Raw payload source, optionally behind the Redis cache.
	var fetcher source.RawFetcher = source.NewClient(cfg.SourceURLs, cfg.SourceFallbackPath, cfg.SourceTimeout, cfg.SourceRetries, metrics, logger)
	var cache *source.RedisStore
	if cfg.RedisAddr != "" {
		cache = source.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("payload cache unreachable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		}
		fetcher = source.NewCachedFetcher(fetcher, cache, cfg.SourceCacheTTL, metrics, logger)
		logger.Info("payload cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.SourceCacheTTL)
	}

	opts := pipeline.Options{
		Metadata:    metadata,
		Style:       style,
		Normalizer:  cfg.NormalizerOptions(),
		DisplayMode: cfg.DisplayMode,
		Timeline: timeline.Options{
			Interval:    cfg.TimelineInterval,
			Speed:       cfg.TimelineSpeed,
			Loop:        cfg.TimelineLoop,
			Autoplay:    cfg.TimelineAutoplay,
			StartOffset: cfg.TimelineStartOffset,
		},
		RefreshInterval: cfg.RefreshInterval,
		Handlers: regionindex.Handlers{
			OnClick: func(r *regionindex.Region) {
				if r == nil {
					logger.Debug("selection cleared")
					return
				}
				logger.Debug("region selected", "id", r.ID, "name", r.DisplayName)
			},
		},
	}

	var writer *kafkaadapter.SnapshotWriter
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewSnapshotWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic)
	}

	var store *postgres.Store
	if cfg.PostgresDSN != "" {
		store, err = postgres.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			logger.Error("failed to open series store", "error", err)
			os.Exit(1)
		}
		opts.Store = store
		logger.Info("daily series store enabled")
	}

	docs := func(context.Context) (pipeline.Document, error) {
		return svg.LoadFile(cfg.SVGPath)
	}
	p := pipeline.New(docs, source.NewPayloadSource(fetcher), opts, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start build pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		store.Close()
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
