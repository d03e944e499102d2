// Package executor evaluates a query: it parses it, scores every term
// against the corpus statistics and ranks the matching documents.
package executor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/tracing"
)

type SearchResult struct {
	Query     string             `json:"query"`
	Terms     []string           `json:"terms"`
	URLs      []string           `json:"urls"`
	Results   []ranker.ScoredDoc `json:"results"`
	TotalHits int                `json:"total_hits"`
}

func emptyResult(plan *parser.QueryPlan) *SearchResult {
	return &SearchResult{
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		URLs:    []string{},
		Results: []ranker.ScoredDoc{},
	}
}

// Options tune an Executor.
type Options struct {
	// MaxResults caps the ranked list; <= 0 means ranker.DefaultLimit.
	MaxResults int
	// StorageTimeout bounds each individual storage call.
	StorageTimeout time.Duration
	// FetchConcurrency bounds how many posting lists are read at once.
	FetchConcurrency int
}

type Executor struct {
	scorer  *scorer.Scorer
	stats   index.CorpusStats
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(postings index.PostingStore, stats index.CorpusStats, opts Options, m *metrics.Metrics) *Executor {
	if opts.MaxResults <= 0 || opts.MaxResults > ranker.DefaultLimit {
		opts.MaxResults = ranker.DefaultLimit
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 4
	}
	return &Executor{
		scorer:  scorer.New(postings),
		stats:   stats,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Search returns at most MaxResults urls for query. A query without terms,
// an empty corpus, or terms that match nothing all yield an empty result.
// Any storage failure fails the whole search.
func (e *Executor) Search(ctx context.Context, query string) (*SearchResult, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "search")
	defer span.End(ctx)
	plan := parser.Parse(query)
	span.SetAttr("terms", len(plan.Terms))
	result, err := e.execute(ctx, plan)
	e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	case len(result.URLs) == 0:
		e.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		e.metrics.SearchResultsCount.Observe(0)
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
		e.metrics.SearchResultsCount.Observe(float64(len(result.URLs)))
	}
	return result, err
}

func (e *Executor) execute(ctx context.Context, plan *parser.QueryPlan) (*SearchResult, error) {
	log := logger.FromContext(ctx).With("component", "query-executor")
	if len(plan.Terms) == 0 {
		return emptyResult(plan), nil
	}

	var stats index.Stats
	_, statsSpan := tracing.Start(ctx, "corpus_stats")
	err := resilience.WithTimeout(ctx, e.opts.StorageTimeout, "reading corpus stats", func(ctx context.Context) error {
		var err error
		stats, err = e.stats.Stats(ctx)
		return err
	})
	statsSpan.End(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "reading corpus stats")
	}
	e.metrics.CorpusDocuments.Set(float64(stats.TotalDocuments))
	if stats.TotalDocuments == 0 {
		return emptyResult(plan), nil
	}

	scores, err := e.score(ctx, plan.Terms, stats)
	if err != nil {
		return nil, err
	}

	// Terms are folded in query order so float sums are reproducible.
	r := ranker.New()
	for _, term := range plan.Terms {
		for _, p := range scores[term].Postings {
			r.Add(p.URL, p.TFIDF, p.BM25)
		}
	}

	ranked := r.Top(e.opts.MaxResults)
	urls := make([]string, len(ranked))
	for i, d := range ranked {
		urls[i] = d.URL
	}
	log.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"candidates", r.Len(),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		Terms:     plan.Terms,
		URLs:      urls,
		Results:   ranked,
		TotalHits: r.Len(),
	}, nil
}

// score scores each distinct term concurrently.
func (e *Executor) score(ctx context.Context, terms []string, stats index.Stats) (map[string]scorer.TermScore, error) {
	distinct := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		distinct = append(distinct, term)
	}

	results := make([]scorer.TermScore, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.FetchConcurrency)
	for i, term := range distinct {
		g.Go(func() error {
			tctx, span := tracing.Start(gctx, "score_term")
			span.SetAttr("term", term)
			defer span.End(tctx)
			var ts scorer.TermScore
			err := resilience.WithTimeout(tctx, e.opts.StorageTimeout, "scoring "+term, func(ctx context.Context) error {
				var err error
				ts, err = e.scorer.Score(ctx, term, stats)
				return err
			})
			if err != nil {
				span.SetAttr("error", err)
				return err
			}
			span.SetAttr("postings", len(ts.Postings))
			results[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "scoring terms")
	}

	out := make(map[string]scorer.TermScore, len(distinct))
	for i, term := range distinct {
		out[term] = results[i]
	}
	return out, nil
}
