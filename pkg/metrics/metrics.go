// Package metrics defines the Prometheus metric collectors used by the
// indexer, searcher and crawler, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	DocumentsIndexedTotal *prometheus.CounterVec
	PostingUpsertsTotal   *prometheus.CounterVec
	TermLockWait          prometheus.Histogram
	IndexLatency          prometheus.Histogram
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         prometheus.Histogram
	SearchResultsCount    prometheus.Histogram
	CorpusDocuments       prometheus.Gauge
	IngestMessagesTotal   *prometheus.CounterVec
	CrawlPagesTotal       *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Services pass
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry()
// so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocumentsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_indexed_total",
				Help: "Documents indexed by result (new, updated, partial, failed).",
			},
			[]string{"result"},
		),
		PostingUpsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posting_upserts_total",
				Help: "Per-term posting upserts by status (appended, replaced, error).",
			},
			[]string{"status"},
		),
		TermLockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "term_lock_wait_seconds",
				Help:    "Time spent waiting for a per-term lock.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		IndexLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_latency_seconds",
				Help:    "End-to-end latency of indexing one document.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 15, 20, 25},
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Distinct documents in the corpus as last observed.",
			},
		),
		IngestMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_messages_total",
				Help: "Kafka ingest messages by status (indexed, invalid, failed).",
			},
			[]string{"status"},
		),
		CrawlPagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_pages_total",
				Help: "Crawled pages by status (delivered, fetch_error, sink_error).",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocumentsIndexedTotal,
		m.PostingUpsertsTotal,
		m.TermLockWait,
		m.IndexLatency,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CorpusDocuments,
		m.IngestMessagesTotal,
		m.CrawlPagesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
