package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	FailedSearches    int64        `json:"failed_searches"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	TotalDocIndexed   int64        `json:"total_docs_indexed"`
	NewDocuments      int64        `json:"new_documents"`
	PartialIndexes    int64        `json:"partial_indexes"`
	FailedIndexes     int64        `json:"failed_indexes"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over search and index events. It
// implements kafka.Publisher so a Collector can feed it directly when Kafka
// is disabled.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	failedSearches    int64
	zeroResults       int64
	totalDocIndexed   int64
	newDocuments      int64
	partialIndexes    int64
	failedIndexes     int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Publish records event in-process.
func (a *Aggregator) Publish(_ context.Context, event kafka.Event) error {
	switch e := event.Value.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case IndexEvent:
		a.recordIndexEvent(e)
	default:
		return fmt.Errorf("unsupported analytics event %T", event.Value)
	}
	return nil
}

// HandleEvent returns a Kafka MessageHandler that feeds agg. Undecodable
// events are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var envelope struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &envelope); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return kafka.ErrSkip
		}
		switch envelope.Type {
		case EventSearch, EventZeroResult:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return kafka.ErrSkip
			}
			agg.recordSearchEvent(event)
		case EventIndexDoc:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return kafka.ErrSkip
			}
			agg.recordIndexEvent(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", envelope.Type)
			return kafka.ErrSkip
		}
		return nil
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	if event.Failed {
		a.failedSearches++
		return
	}
	a.addLatency(event.LatencyMs)
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) recordIndexEvent(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalDocIndexed++
	switch {
	case event.Failed:
		a.failedIndexes++
	case event.Partial:
		a.partialIndexes++
	}
	if event.NewDocument {
		a.newDocuments++
	}
}

// addLatency keeps the most recent maxLatencySamples values as a ring.
func (a *Aggregator) addLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.next] = ms
	a.next = (a.next + 1) % maxLatencySamples
}

// DefaultTopQueries is how many top and zero-result queries Stats reports.
const DefaultTopQueries = 10

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopQueries)
}

// StatsTop is Stats with the query lists cut to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		FailedSearches:  a.failedSearches,
		ZeroResultCount: a.zeroResults,
		TotalDocIndexed: a.totalDocIndexed,
		NewDocuments:    a.newDocuments,
		PartialIndexes:  a.partialIndexes,
		FailedIndexes:   a.failedIndexes,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
