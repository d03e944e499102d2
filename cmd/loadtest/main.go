// Command loadtest drives the searcher with concurrent queries and prints a
// latency report. With -seed it first indexes synthetic documents built from
// the query vocabulary so that every query has matches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
)

var vocabulary = []string{
	"distributed", "systems", "search", "engine", "inverted", "index",
	"posting", "ranking", "bm25", "tfidf", "crawler", "document",
	"query", "term", "frequency", "corpus",
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	emptyResults  atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// RecordRequest files one search under its outcome. Transport failures carry
// status code 0.
func (s *Stats) RecordRequest(duration time.Duration, results int, err error) {
	s.totalRequests.Add(1)

	code := 200
	if err != nil {
		s.errorCount.Add(1)
		code = 0
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			code = statusErr.StatusCode
		}
	} else {
		s.successCount.Add(1)
		if results == 0 {
			s.emptyResults.Add(1)
		}
		s.latenciesMu.Lock()
		s.latencies = append(s.latencies, duration)
		s.latenciesMu.Unlock()
	}

	s.statusCodesMu.Lock()
	s.statusCodes[code]++
	s.statusCodesMu.Unlock()
}

func main() {
	configPath := flag.String("config", "", "optional config file for the service URLs")
	indexerURL := flag.String("indexer", "", "indexer base URL (overrides config)")
	searcherURL := flag.String("searcher", "", "searcher base URL (overrides config)")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 0, "number of synthetic documents to index before the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexerURL != "" {
		cfg.Client.IndexerURL = *indexerURL
	}
	if *searcherURL != "" {
		cfg.Client.SearcherURL = *searcherURL
	}
	c := client.New(cfg.Client)

	queries := buildQueries()

	fmt.Println("=== Search Load Test ===")
	fmt.Printf("Searcher:    %s\n", cfg.Client.SearcherURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d unique\n", len(queries))
	fmt.Println()

	if *seed > 0 {
		fmt.Printf("Seeding %d documents into %s\n", *seed, cfg.Client.IndexerURL)
		if err := seedDocuments(context.Background(), c, *seed); err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
	}

	stats := runLoadTest(c, queries, *concurrency, *duration)
	if !printReport(stats, *duration) {
		os.Exit(1)
	}
}

// buildQueries pairs neighbouring vocabulary words into two-term queries and
// adds every single word on its own.
func buildQueries() []string {
	queries := make([]string, 0, len(vocabulary)*2)
	for i, word := range vocabulary {
		queries = append(queries, word)
		queries = append(queries, word+"+"+vocabulary[(i+1)%len(vocabulary)])
	}
	return queries
}

// syntheticDocument returns document n: a fixed-size slice of the vocabulary
// with the n-th word repeated so that term frequencies differ across the
// corpus.
func syntheticDocument(n int) client.Document {
	words := make([]string, 0, 12)
	for i := 0; i < 8; i++ {
		words = append(words, vocabulary[(n+i*3)%len(vocabulary)])
	}
	for i := 0; i < n%4; i++ {
		words = append(words, vocabulary[n%len(vocabulary)])
	}
	return client.Document{
		URL:     fmt.Sprintf("loadtest://doc/%d", n),
		Content: strings.Join(words, " "),
	}
}

func seedDocuments(ctx context.Context, c *client.Client, n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.Index(ctx, syntheticDocument(i)); err != nil {
			return fmt.Errorf("indexing document %d: %w", i, err)
		}
	}
	return nil
}

func runLoadTest(c *client.Client, queries []string, concurrency int, duration time.Duration) *Stats {
	stats := NewStats()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID

			for ctx.Err() == nil {
				query := queries[queryIdx%len(queries)]
				queryIdx++

				start := time.Now()
				urls, err := c.Search(ctx, query)
				if ctx.Err() != nil {
					// The run ended mid-request; do not count it.
					return
				}
				stats.RecordRequest(time.Since(start), len(urls), err)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// printReport writes the summary and reports whether any request completed.
func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errCount := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Empty Results:   %d\n", stats.emptyResults.Load())
	fmt.Printf("Errors:          %d\n", errCount)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errCount)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the searcher running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
