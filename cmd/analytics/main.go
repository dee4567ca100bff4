// Command analytics starts the standalone query analytics service.
//
// It consumes query and reload events published by the search service on
// Kafka, aggregates them in memory (query counts per operation, latency
// percentiles, cache hit rate, top and zero-result queries, top tags and
// categories, reload outcomes) and serves them at GET /api/v1/analytics.
// With analytics.persist set, periodic snapshots are written to Postgres
// and served at GET /api/v1/analytics/history. Metrics share the API port.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka; with kafka disabled the search service aggregates in process")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator(cfg.Analytics.LatencyWindow)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))

	checker := health.NewChecker()
	checker.Register("aggregator", func(ctx context.Context) health.ComponentHealth {
		stats := agg.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d queries, %d reloads", stats.TotalQueries, stats.Reloads),
		}
	})

	var store *aggregator.Store
	var history analytics.History
	if cfg.Analytics.Persist {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		store = aggregator.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating analytics store: %w", err)
		}
		history = store
		checker.Register("postgres", health.Pinger(db.Ping, health.StatusDegraded))
	}

	analyticsHandler := analytics.NewHandler(agg, history)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics(m))
	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())
	r.Get("/api/v1/analytics", analyticsHandler.Stats)
	r.Get("/api/v1/analytics/history", analyticsHandler.History)
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", metrics.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
		return consumer.Start(gctx)
	})
	if store != nil {
		g.Go(func() error {
			return store.RunPeriodicSave(gctx, agg, cfg.Analytics.SnapshotInterval)
		})
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}
