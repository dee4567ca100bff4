// Command searcher serves the blog catalogue query API.
//
// It loads the catalogue from files or Postgres, builds the index snapshot
// and answers listing, lookup, related and search queries over HTTP. The
// snapshot is rebuilt when the catalogue files change, when a refresh event
// arrives on Kafka, or on POST /api/v1/admin/reload.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/source"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/watcher"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/redis"
)

// tracker is what both analytics collectors look like to main.
type tracker interface {
	Start(ctx context.Context)
	Track(event any)
	Close()
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"source", cfg.Catalogue.Source,
	)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	eng := engine.New()
	checker := health.NewChecker()
	checker.Register("snapshot", func(ctx context.Context) health.ComponentHealth {
		snap := eng.Current()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "catalogue not loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d posts, version %.12s", snap.Len(), snap.Version()),
		}
	})

	var db *postgres.Client
	if cfg.Catalogue.Source == config.SourcePostgres || cfg.Analytics.Persist {
		var err error
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		checker.Register("postgres", health.Pinger(db.Ping, health.StatusDown))
	}

	var src source.Source
	switch cfg.Catalogue.Source {
	case config.SourcePostgres:
		src = source.NewPostgres(db)
	default:
		src = source.NewFile(cfg.Catalogue.Path)
	}

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "unavailable at startup"}
			})
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, cache.WithMetrics(m))
			checker.Register("redis", health.Pinger(redisClient.Ping, health.StatusDegraded))
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	var (
		events      tracker
		agg         *analytics.Aggregator
		store       *aggregator.Store
		analyticsH  *analytics.Handler
		publisher   *kafka.Producer
		handlerOpts []handler.Option
	)
	if cfg.Analytics.Enabled {
		if cfg.Kafka.Enabled {
			publisher = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
			defer publisher.Close()
			events = collector.NewBatchCollector(publisher, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
			slog.Info("analytics events published to kafka", "topic", cfg.Kafka.Topics.AnalyticsEvents)
		} else {
			agg = analytics.NewAggregator(cfg.Analytics.LatencyWindow)
			events = analytics.NewCollector(agg, cfg.Analytics.BufferSize)
			var history analytics.History
			if db != nil && cfg.Analytics.Persist {
				store = aggregator.NewStore(db)
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("migrating analytics store: %w", err)
				}
				history = store
			}
			analyticsH = analytics.NewHandler(agg, history)
			handlerOpts = append(handlerOpts, handler.WithAnalytics(analyticsH))
			slog.Info("analytics aggregated in process", "persist", store != nil)
		}
		events.Start(ctx)
		defer events.Close()
		handlerOpts = append(handlerOpts, handler.WithTracker(events))
	}

	reloadOpts := []indexer.Option{
		indexer.WithMetrics(m),
		indexer.WithTracing(cfg.Tracing.Enabled),
	}
	if events != nil {
		reloadOpts = append(reloadOpts, indexer.OnReload(func(trigger indexer.Trigger, res indexer.Result, err error) {
			event := analytics.ReloadEvent{
				Type:      analytics.EventReload,
				Trigger:   string(trigger),
				Version:   res.Stats.Version,
				Posts:     res.Stats.Posts,
				Changed:   res.Changed,
				Timestamp: time.Now().UTC(),
			}
			if err != nil {
				event.Error = err.Error()
			}
			events.Track(event)
		}))
	}
	if queryCache != nil {
		reloadOpts = append(reloadOpts, indexer.OnReload(func(_ indexer.Trigger, res indexer.Result, err error) {
			if err != nil || !res.Changed || res.PreviousVersion == "" {
				return
			}
			go func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if _, err := queryCache.Invalidate(flushCtx); err != nil {
					slog.Warn("failed to drop cached results of previous snapshot", "error", err)
				}
			}()
		}))
	}
	reloader := indexer.NewReloader(src, eng, cfg.Catalogue, reloadOpts...)

	if _, err := reloader.Reload(ctx, indexer.TriggerStartup); err != nil {
		slog.Error("initial catalogue load failed, serving 503 until a reload succeeds", "error", err)
	}

	handlerOpts = append(handlerOpts, handler.WithReloader(reloader), handler.WithMetrics(m))
	if queryCache != nil {
		handlerOpts = append(handlerOpts, handler.WithCache(queryCache))
	}
	h := handler.New(eng, cfg.Search, handlerOpts...)

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = ratelimit.New(cfg.Server.RateLimit, time.Minute)
		defer limiter.Close()
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.NewRouter(h, checker, handler.RouterConfig{
			Metrics:        m,
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
			Limiter:        limiter,
			AdminToken:     cfg.Server.AdminToken,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, nil)
		g.Go(metricsServer.ListenAndServe)
	}

	if cfg.Catalogue.Source == config.SourceFile && cfg.Catalogue.Watch {
		w := watcher.New(cfg.Catalogue.Path, cfg.Catalogue.Debounce, func(ctx context.Context) {
			// failures are logged by the reloader and keep the active snapshot
			_, _ = reloader.Reload(ctx, indexer.TriggerWatch)
		})
		g.Go(func() error { return w.Run(gctx) })
	}

	if cfg.Kafka.Enabled {
		refresh := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CatalogueRefresh,
			consumer.HandleMessage(reloader),
		))
		g.Go(func() error { return refresh.Start(gctx) })
	}

	if store != nil {
		g.Go(func() error {
			return store.RunPeriodicSave(gctx, agg, cfg.Analytics.SnapshotInterval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
