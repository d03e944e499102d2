package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index/mocks"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/keylock"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/memory"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	return NewEngine(store, store, keylock.NewLocal(), Options{TermConcurrency: 4}, m), store, m
}

func TestIndexDocumentWritesPostings(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	res, err := engine.IndexDocument(ctx, index.Document{URL: "https://a.example", Content: "a b a"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Terms)
	assert.Equal(t, 2, res.Appended)
	assert.True(t, res.NewDocument)

	list, err := store.Postings(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://a.example", list[0].URL)
	assert.InDelta(t, 2.0/3.0, list[0].TermFrequency, 1e-12)
	assert.Equal(t, len("a b a"), list[0].DocumentLength)
}

func TestIndexSameURLTwiceReplacesPosting(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	_, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple banana"})
	require.NoError(t, err)
	before, _ := store.Postings(ctx, "apple")

	res, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple apple cherry"})
	require.NoError(t, err)
	after, _ := store.Postings(ctx, "apple")

	assert.Len(t, after, len(before))
	assert.InDelta(t, 2.0/3.0, after[0].TermFrequency, 1e-12)
	assert.False(t, res.NewDocument)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 1, res.Appended)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDocuments)
	assert.InDelta(t, float64(len("apple apple cherry")), stats.AverageDocumentLength, 1e-9)
}

func TestConcurrentDocumentsSharingTermsKeepEveryPosting(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	const docs = 50
	var wg sync.WaitGroup
	for i := 0; i < docs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.IndexDocument(ctx, index.Document{
				URL:     fmt.Sprintf("https://site.example/%d", i),
				Content: fmt.Sprintf("shared common unique%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for _, term := range []string{"shared", "common"} {
		list, err := store.Postings(ctx, term)
		require.NoError(t, err)
		assert.Len(t, list, docs, "term %q lost postings", term)
	}
	stats, _ := store.Stats(ctx)
	assert.Equal(t, int64(docs), stats.TotalDocuments)
}

func TestEmptyContentRegistersDocumentOnly(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	res, err := engine.IndexDocument(ctx, index.Document{URL: "empty"})
	require.NoError(t, err)
	assert.Zero(t, res.Terms)
	assert.True(t, res.NewDocument)
	assert.Empty(t, store.Terms())
}

func TestPartialFailureKeepsAppliedTerms(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	m := metrics.New(prometheus.NewRegistry())
	engine := NewEngine(postings, stats, keylock.NewLocal(), Options{TermConcurrency: 1}, m)

	postings.EXPECT().Postings(gomock.Any(), "apple").Return(index.PostingList{}, nil)
	postings.EXPECT().ReplacePostings(gomock.Any(), "apple", gomock.Len(1)).Return(nil)
	postings.EXPECT().Postings(gomock.Any(), "banana").Return(nil, errors.New("connection reset"))
	stats.EXPECT().RegisterDocument(gomock.Any(), "u", len("apple banana")).Return(true, nil)

	res, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple banana"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPartialIndex)
	assert.True(t, IsPartial(err))
	assert.Contains(t, err.Error(), `term "banana"`)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsIndexedTotal.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostingUpsertsTotal.WithLabelValues("error")))
}

func TestAllTermsFailingIsStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	engine := NewEngine(postings, stats, keylock.NewLocal(), Options{TermConcurrency: 2}, m)

	postings.EXPECT().Postings(gomock.Any(), gomock.Any()).Return(nil, errors.New("down")).Times(2)

	_, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple banana"})

	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.False(t, IsPartial(err))
	assert.Equal(t, 500, apperrors.HTTPStatusCode(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsIndexedTotal.WithLabelValues("failed")))
	assert.EqualValues(t, 1, indexLatencySamples(t, reg))
}

func indexLatencySamples(t *testing.T, reg *prometheus.Registry) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "index_latency_seconds" {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func TestWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	engine := NewEngine(postings, stats, keylock.NewLocal(), Options{TermConcurrency: 1}, metrics.New(prometheus.NewRegistry()))

	postings.EXPECT().Postings(gomock.Any(), "apple").Return(index.PostingList{{URL: "other"}}, nil)
	postings.EXPECT().ReplacePostings(gomock.Any(), "apple", gomock.Len(2)).Return(errors.New("write failed"))

	_, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestRegisterFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	engine := NewEngine(postings, stats, keylock.NewLocal(), Options{TermConcurrency: 1}, metrics.New(prometheus.NewRegistry()))

	postings.EXPECT().Postings(gomock.Any(), "apple").Return(nil, nil)
	postings.EXPECT().ReplacePostings(gomock.Any(), "apple", gomock.Any()).Return(nil)
	stats.EXPECT().RegisterDocument(gomock.Any(), "u", 5).Return(false, errors.New("stats down"))

	_, err := engine.IndexDocument(ctx, index.Document{URL: "u", Content: "apple"})
	assert.ErrorIs(t, err, apperrors.ErrPartialIndex)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}
