// Package crawler fetches pages, reduces them to cleaned text and hands the
// resulting documents to a sink: the indexer's HTTP API or the ingest topic.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
)

var ErrNoURLs = errors.New("no urls provided")

// PageFetcher is implemented by Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (index.Document, error)
}

// Sink receives every successfully fetched document.
type Sink interface {
	Submit(ctx context.Context, doc index.Document) error
}

type Options struct {
	Workers       int
	RatePerSecond float64
	FetchAttempts int
}

func OptionsFromConfig(cfg config.CrawlerConfig) Options {
	return Options{
		Workers:       cfg.Workers,
		RatePerSecond: cfg.RatePerSecond,
		FetchAttempts: cfg.FetchAttempts,
	}
}

// Report summarizes one Crawl run.
type Report struct {
	URLs      int           `json:"urls"`
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

type Crawler struct {
	fetcher PageFetcher
	sink    Sink
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(fetcher PageFetcher, sink Sink, opts Options, m *metrics.Metrics) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FetchAttempts < 1 {
		opts.FetchAttempts = 1
	}
	return &Crawler{
		fetcher:  fetcher,
		sink:     sink,
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "crawler"),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Crawl fetches every url with at most Workers in flight and submits the
// results. A failing url is logged and counted; Crawl only returns an error
// for an empty list, a cancelled ctx, or when every url failed.
func (c *Crawler) Crawl(ctx context.Context, urls []string) (Report, error) {
	if len(urls) == 0 {
		return Report{}, ErrNoURLs
	}
	start := time.Now()
	report := Report{URLs: len(urls)}

	var (
		mu   sync.Mutex
		merr *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, u := range urls {
		g.Go(func() error {
			status, err := c.crawlOne(gctx, u)
			c.metrics.CrawlPagesTotal.WithLabelValues(status).Inc()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				merr = multierror.Append(merr, err)
				c.logger.Warn("crawl failed", "url", u, "status", status, "error", err)
				return nil
			}
			report.Submitted++
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)

	c.logger.Info("crawl finished",
		"urls", report.URLs,
		"submitted", report.Submitted,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("crawl interrupted: %w", err)
	}
	if report.Submitted == 0 {
		return report, fmt.Errorf("every url failed: %w", merr.ErrorOrNil())
	}
	return report, nil
}

// crawlOne returns the crawl_pages_total status label along with the error.
func (c *Crawler) crawlOne(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "fetch_error", fmt.Errorf("invalid url %q", rawURL)
	}
	if err := c.limiter(parsed.Host).Wait(ctx); err != nil {
		return "fetch_error", fmt.Errorf("waiting for %s: %w", parsed.Host, err)
	}

	var doc index.Document
	err = resilience.Retry(ctx, "fetch", resilience.RetryConfig{
		MaxAttempts: c.opts.FetchAttempts,
		RetryIf:     Retryable,
	}, func() error {
		var err error
		doc, err = c.fetcher.Fetch(ctx, rawURL)
		return err
	})
	if err != nil {
		return "fetch_error", err
	}
	if err := c.sink.Submit(ctx, doc); err != nil {
		return "sink_error", fmt.Errorf("submitting %s: %w", rawURL, err)
	}
	c.logger.Debug("page submitted", "url", rawURL, "bytes", len(doc.Content))
	return "delivered", nil
}

// limiter returns the per-host politeness limiter.
func (c *Crawler) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		limit := rate.Inf
		if c.opts.RatePerSecond > 0 {
			limit = rate.Limit(c.opts.RatePerSecond)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[host] = l
	}
	return l
}

// Run crawls seeds immediately and then every interval until ctx is done.
// seeds is called before each run so the list can change between runs. A
// non-positive interval crawls once.
func (c *Crawler) Run(ctx context.Context, interval time.Duration, seeds func(ctx context.Context) ([]string, error)) error {
	if interval <= 0 {
		urls, err := seeds(ctx)
		if err != nil {
			return fmt.Errorf("loading seeds: %w", err)
		}
		_, err = c.Crawl(ctx, urls)
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		urls, err := seeds(ctx)
		if err != nil {
			c.logger.Error("loading seeds failed", "error", err)
		} else if _, err := c.Crawl(ctx, urls); err != nil && ctx.Err() == nil {
			c.logger.Error("crawl run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
