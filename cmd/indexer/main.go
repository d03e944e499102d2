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
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/handler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/keylock"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/service"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	withSearch := flag.Bool("with-search", false, "also serve the search and analytics routes from this process")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"lock", cfg.Indexer.Lock,
		"term_concurrency", cfg.Indexer.TermConcurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *withSearch); err != nil {
		slog.Error("indexer service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer service stopped")
}

func run(ctx context.Context, cfg *config.Config, withSearch bool) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
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

	locker, closeLocker, err := newLocker(cfg, checker)
	if err != nil {
		return err
	}
	defer closeLocker()

	engine := indexer.NewEngine(st, st, locker, indexer.OptionsFromConfig(cfg), m)

	var aggregator *analytics.Aggregator
	var local kafka.Publisher
	if withSearch {
		aggregator = analytics.NewAggregator()
		local = aggregator
	}
	tracker, closeTracker := service.NewTracker(ctx, cfg, local)
	defer closeTracker()

	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.OptionalCheck(health.PingCheck(kafka.Brokers(cfg.Kafka.Brokers))))
		kafkaConsumer := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(engine, m),
			kafka.FromFirstOffset(),
		)
		defer kafkaConsumer.Close()
		indexConsumer := consumer.New(kafkaConsumer)
		go func() {
			if err := indexConsumer.Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()
		slog.Info("consuming documents from kafka",
			"topic", cfg.Kafka.Topics.DocumentIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	mux := http.NewServeMux()
	handler.New(engine, tracker).Register(mux)
	checker.Mount(mux)
	if withSearch {
		// Single process, single store: the in-memory backend becomes
		// searchable without a shared database.
		exec := executor.New(st, st, executor.Options{
			MaxResults:       cfg.Search.MaxResults,
			StorageTimeout:   cfg.Storage.Timeout,
			FetchConcurrency: cfg.Search.FetchConcurrency,
		}, m)
		searchhandler.New(exec, tracker).Register(mux)
		analytics.NewHandler(aggregator).Register(mux)
		slog.Info("serving search routes in-process")
	}

	return service.ListenAndServe(ctx, cfg.Server.Port, cfg.Server, service.Handler(mux, m, cfg.Server.WriteTimeout))
}

// newLocker returns the term locker named by indexer.lock and a func that
// releases its connection.
func newLocker(cfg *config.Config, checker *health.Checker) (keylock.Locker, func(), error) {
	if cfg.Indexer.Lock != config.LockRedis {
		return keylock.NewLocal(), func() {}, nil
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	checker.Register("redis", health.PingCheck(client))
	slog.Info("using redis term lock", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.LockTTL)
	locker := keylock.NewRedis(client, keylock.RedisConfig{
		KeySpace: cfg.Redis.LockKeySpace,
		TTL:      cfg.Redis.LockTTL,
		Retry:    cfg.Redis.LockRetry,
	})
	return locker, func() {
		if err := client.Close(); err != nil {
			slog.Error("closing redis client", "error", err)
		}
	}, nil
}
