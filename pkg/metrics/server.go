package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StartServer serves g at /metrics on its own port, separate from the
// service API. A port that cannot be bound is logged and metrics are
// skipped; the returned shutdown func is always safe to call.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	log := slog.Default().With("component", "metrics-server")
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Error("metrics disabled, cannot listen", "port", port, "error", err)
		return func(context.Context) error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		log.Info("metrics server listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return server.Shutdown
}
