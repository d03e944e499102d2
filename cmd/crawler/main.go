package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/mongo"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	once := flag.Bool("once", false, "crawl the seeds a single time and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting crawler",
		"seeds", len(cfg.Crawler.Seeds),
		"interval", cfg.Crawler.Interval,
		"workers", cfg.Crawler.Workers,
		"sink", cfg.Crawler.Sink,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once); err != nil {
		slog.Error("crawler failed", "error", err)
		os.Exit(1)
	}
	slog.Info("crawler stopped")
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	var sink crawler.Sink
	switch cfg.Crawler.Sink {
	case config.SinkKafka:
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer producer.Close()
		sink = crawler.NewKafkaSink(producer)
	default:
		sink = crawler.NewHTTPSink(client.New(cfg.Client), resilience.BreakerConfig{})
	}

	seeds, closeSeeds, err := seedSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSeeds()

	fetcher := crawler.NewFetcher(cfg.Crawler.FetchTimeout, cfg.Crawler.UserAgent)
	c := crawler.New(fetcher, sink, crawler.OptionsFromConfig(cfg.Crawler), m)

	interval := cfg.Crawler.Interval
	if once {
		interval = 0
	}
	return c.Run(ctx, interval, seeds)
}

// seedSource uses the configured seed list, falling back to the websites
// collection when the mongo backend is in use and no seeds are configured.
func seedSource(ctx context.Context, cfg *config.Config) (func(context.Context) ([]string, error), func(), error) {
	if len(cfg.Crawler.Seeds) > 0 || cfg.Storage.Backend != config.BackendMongo {
		seeds := cfg.Crawler.Seeds
		return func(context.Context) ([]string, error) { return seeds, nil }, func() {}, nil
	}
	st, err := mongo.Open(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, fmt.Errorf("opening website list: %w", err)
	}
	slog.Info("reading seeds from mongo", "collection", cfg.Mongo.DocumentsCollection)
	return st.URLs, func() { st.Close() }, nil
}
