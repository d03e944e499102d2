// Package service holds the wiring shared by the indexer and searcher
// binaries: the middleware stack, the HTTP server lifecycle and the
// analytics tracker.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/middleware"
)

// Handler wraps h with request ids, request metrics and a write deadline.
func Handler(h http.Handler, m *metrics.Metrics, timeout time.Duration) http.Handler {
	return middleware.Chain(h,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(timeout),
	)
}

// Serve listens on ln until ctx is cancelled, then shuts down gracefully
// within cfg.ShutdownTimeout.
func Serve(ctx context.Context, ln net.Listener, cfg config.ServerConfig, h http.Handler) error {
	server := &http.Server{
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// ListenAndServe is Serve on a TCP listener for port.
func ListenAndServe(ctx context.Context, port int, cfg config.ServerConfig, h http.Handler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", port, err)
	}
	return Serve(ctx, ln, cfg, h)
}

// NewTracker builds the analytics tracker of a service. With analytics off it
// is analytics.Discard. With Kafka on, events go to the analytics topic;
// otherwise they go to local, which may be nil when the service has no
// in-process aggregator. The returned func flushes and releases everything.
func NewTracker(ctx context.Context, cfg *config.Config, local kafka.Publisher) (analytics.Tracker, func()) {
	if !cfg.Analytics.Enabled {
		return analytics.Discard, func() {}
	}

	var (
		publisher kafka.Publisher
		closeFn   = func() {}
	)
	switch {
	case cfg.Kafka.Enabled:
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		publisher = producer
		closeFn = func() {
			if err := producer.Close(); err != nil {
				slog.Error("closing analytics producer", "error", err)
			}
		}
	case local != nil:
		publisher = local
	default:
		return analytics.Discard, func() {}
	}

	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	return collector, func() {
		collector.Close()
		closeFn()
	}
}
