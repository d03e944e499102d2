// Command analytics runs the standalone analytics service.
//
// It consumes index and search events from the analytics topic, aggregates
// them in memory and serves the totals at GET /api/v1/analytics. Kafka must be
// enabled; without it the searcher aggregates its own events in-process.
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/service"
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
	slog.Info("starting analytics service",
		"port", cfg.Analytics.Port,
		"topic", cfg.Kafka.Topics.AnalyticsEvents,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New("kafka must be enabled for the standalone analytics service")
	}

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.AnalyticsEvents,
		analytics.HandleEvent(aggregator),
		kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics-service"),
	)
	defer consumer.Close()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", health.PingCheck(kafka.Brokers(cfg.Kafka.Brokers)))
	m := metrics.New(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	analytics.NewHandler(aggregator).Register(mux)
	checker.Mount(mux)
	mux.Handle("GET /metrics", metrics.Handler(prometheus.DefaultGatherer))

	return service.ListenAndServe(ctx, cfg.Analytics.Port, cfg.Server, service.Handler(mux, m, cfg.Server.WriteTimeout))
}
