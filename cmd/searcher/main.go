package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/service"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
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
	slog.Info("starting search service",
		"port", cfg.Search.Port,
		"storage", cfg.Storage.Backend,
		"max_results", cfg.Search.MaxResults,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Search.MetricsPort, prometheus.DefaultGatherer)
		defer shutdown(context.Background())
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("closing storage", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("storage", health.PingCheck(st))

	aggregator := analytics.NewAggregator()
	tracker, closeTracker := service.NewTracker(ctx, cfg, aggregator)
	defer closeTracker()

	// With Kafka the aggregator also sees the indexer's events.
	if cfg.Analytics.Enabled && cfg.Kafka.Enabled {
		checker.Register("kafka", health.OptionalCheck(health.PingCheck(kafka.Brokers(cfg.Kafka.Brokers))))
		analyticsConsumer := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.AnalyticsEvents,
			analytics.HandleEvent(aggregator),
			kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics"),
		)
		defer analyticsConsumer.Close()
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics aggregator consuming", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	exec := executor.New(st, st, executor.Options{
		MaxResults:       cfg.Search.MaxResults,
		StorageTimeout:   cfg.Storage.Timeout,
		FetchConcurrency: cfg.Search.FetchConcurrency,
	}, m)

	mux := http.NewServeMux()
	handler.New(exec, tracker).Register(mux)
	analytics.NewHandler(aggregator).Register(mux)
	checker.Mount(mux)

	return service.ListenAndServe(ctx, cfg.Search.Port, cfg.Server, service.Handler(mux, m, cfg.Server.WriteTimeout))
}
