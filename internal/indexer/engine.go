// Package indexer implements the write path: it turns a document into
// per-term postings and upserts each of them into the posting store under a
// per-term lock.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/keylock"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/tracing"
)

// Options tune an Engine.
type Options struct {
	// TermConcurrency bounds how many terms of one document are upserted at
	// once.
	TermConcurrency int
	// StorageTimeout bounds each individual storage call.
	StorageTimeout time.Duration
}

// OptionsFromConfig builds Options from the indexer and storage sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TermConcurrency: cfg.Indexer.TermConcurrency,
		StorageTimeout:  cfg.Storage.Timeout,
	}
}

// Result summarizes one IndexDocument call.
type Result struct {
	URL         string        `json:"url"`
	Terms       int           `json:"terms"`
	Replaced    int           `json:"replaced"`
	Appended    int           `json:"appended"`
	Failed      int           `json:"failed"`
	NewDocument bool          `json:"new_document"`
	Duration    time.Duration `json:"duration"`
}

type Engine struct {
	postings index.PostingStore
	stats    index.CorpusStats
	locker   keylock.Locker
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewEngine(postings index.PostingStore, stats index.CorpusStats, locker keylock.Locker, opts Options, m *metrics.Metrics) *Engine {
	if opts.TermConcurrency < 1 {
		opts.TermConcurrency = 1
	}
	return &Engine{
		postings: postings,
		stats:    stats,
		locker:   locker,
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "indexer"),
	}
}

// IndexDocument upserts one posting per distinct term of doc and records
// doc in the corpus statistics. Terms already written stay written when a
// later term fails; the error then matches ErrPartialIndex. When no term
// could be written the error matches ErrStorageUnavailable and the corpus
// statistics are left alone.
func (e *Engine) IndexDocument(ctx context.Context, doc index.Document) (Result, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "index_document")
	defer span.End(ctx)
	span.SetAttr("url", doc.URL)
	log := logger.FromContext(ctx).With("component", "indexer", "url", doc.URL)

	freqs := tokenizer.TermFrequencies(doc.Content)
	docLength := len(doc.Content)
	res := Result{URL: doc.URL, Terms: len(freqs)}

	terms := make([]string, 0, len(freqs))
	for term := range freqs {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var (
		mu     sync.Mutex
		merr   *multierror.Error
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.TermConcurrency)
	for _, term := range terms {
		posting := index.Posting{
			URL:            doc.URL,
			TermFrequency:  freqs[term],
			DocumentLength: docLength,
		}
		g.Go(func() error {
			replaced, err := e.upsertTerm(gctx, term, posting)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				merr = multierror.Append(merr, fmt.Errorf("term %q: %w", term, err))
				e.metrics.PostingUpsertsTotal.WithLabelValues("error").Inc()
			case replaced:
				res.Replaced++
				e.metrics.PostingUpsertsTotal.WithLabelValues("replaced").Inc()
			default:
				res.Appended++
				e.metrics.PostingUpsertsTotal.WithLabelValues("appended").Inc()
			}
			// Per-term failures are collected, not propagated, so the
			// remaining terms still get applied.
			return nil
		})
	}
	_ = g.Wait()
	res.Failed = failed
	span.SetAttr("terms", len(terms))
	span.SetAttr("failed", failed)

	if len(terms) > 0 && failed == len(terms) {
		res.Duration = time.Since(start)
		e.metrics.IndexLatency.Observe(res.Duration.Seconds())
		e.metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
		log.Error("document not indexed", "terms", len(terms), "error", merr.ErrorOrNil())
		return res, apperrors.Wrap(apperrors.ErrStorageUnavailable, merr.ErrorOrNil(), "indexing "+doc.URL)
	}

	isNew, err := e.registerDocument(ctx, doc.URL, docLength)
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	res.NewDocument = isNew
	res.Duration = time.Since(start)
	e.metrics.IndexLatency.Observe(res.Duration.Seconds())

	if err := merr.ErrorOrNil(); err != nil {
		e.metrics.DocumentsIndexedTotal.WithLabelValues("partial").Inc()
		log.Warn("document partially indexed",
			"terms", len(terms),
			"failed", failed,
			"error", err,
		)
		return res, fmt.Errorf("indexing %s: %w: %w", doc.URL, apperrors.ErrPartialIndex, err)
	}

	if isNew {
		e.metrics.DocumentsIndexedTotal.WithLabelValues("new").Inc()
	} else {
		e.metrics.DocumentsIndexedTotal.WithLabelValues("updated").Inc()
	}
	log.Debug("document indexed",
		"terms", res.Terms,
		"appended", res.Appended,
		"replaced", res.Replaced,
		"new_document", isNew,
		"doc_length", docLength,
		"duration", res.Duration,
	)
	return res, nil
}

// upsertTerm runs the read-modify-write of one term's list while holding
// that term's lock.
func (e *Engine) upsertTerm(ctx context.Context, term string, posting index.Posting) (bool, error) {
	waitStart := time.Now()
	unlock, err := e.locker.Lock(ctx, term)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "acquiring term lock")
	}
	defer unlock()
	e.metrics.TermLockWait.Observe(time.Since(waitStart).Seconds())

	var list index.PostingList
	err = resilience.WithTimeout(ctx, e.opts.StorageTimeout, "reading postings", func(ctx context.Context) error {
		var err error
		list, err = e.postings.Postings(ctx, term)
		return err
	})
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "reading postings")
	}

	updated, replaced := list.Upsert(posting)
	err = resilience.WithTimeout(ctx, e.opts.StorageTimeout, "writing postings", func(ctx context.Context) error {
		return e.postings.ReplacePostings(ctx, term, updated)
	})
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "writing postings")
	}
	return replaced, nil
}

func (e *Engine) registerDocument(ctx context.Context, url string, length int) (bool, error) {
	_, span := tracing.Start(ctx, "register_document")
	defer span.End(ctx)
	var isNew bool
	err := resilience.WithTimeout(ctx, e.opts.StorageTimeout, "registering document", func(ctx context.Context) error {
		var err error
		isNew, err = e.stats.RegisterDocument(ctx, url, length)
		return err
	})
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "registering document")
	}
	return isNew, nil
}

// Stats returns the current corpus statistics and refreshes the corpus
// gauge.
func (e *Engine) Stats(ctx context.Context) (index.Stats, error) {
	var stats index.Stats
	err := resilience.WithTimeout(ctx, e.opts.StorageTimeout, "reading corpus stats", func(ctx context.Context) error {
		var err error
		stats, err = e.stats.Stats(ctx)
		return err
	})
	if err != nil {
		return index.Stats{}, apperrors.Wrap(apperrors.ErrStorageUnavailable, err, "reading corpus stats")
	}
	e.metrics.CorpusDocuments.Set(float64(stats.TotalDocuments))
	return stats, nil
}

// IsPartial reports whether err left a document indexed for some terms only.
func IsPartial(err error) bool {
	return errors.Is(err, apperrors.ErrPartialIndex)
}
