// Package middleware provides the HTTP middleware every service mounts:
// request ids, Prometheus request metrics and a request deadline.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

// Metrics counts requests by method, route and status, observes their
// latency and tracks how many are in flight.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusRecorder remembers the first status written. A handler that only
// calls Write has implicitly sent 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

var routes = map[string]bool{
	"/index":            true,
	"/search":           true,
	"/api/v1/index":     true,
	"/api/v1/search":    true,
	"/api/v1/stats":     true,
	"/api/v1/analytics": true,
	"/health/live":      true,
	"/health/ready":     true,
	"/metrics":          true,
}

// routeLabel bounds label cardinality: paths outside the served routes are
// reported as "other".
func routeLabel(path string) string {
	if p := strings.TrimSuffix(path, "/"); routes[p] {
		return p
	}
	return "other"
}
