package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index/mocks"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/keylock"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/memory"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

type fixture struct {
	store    *memory.Store
	engine   *indexer.Engine
	executor *Executor
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		store:    store,
		engine:   indexer.NewEngine(store, store, keylock.NewLocal(), indexer.Options{TermConcurrency: 4}, m),
		executor: New(store, store, Options{}, m),
		metrics:  m,
	}
}

func (f *fixture) index(t *testing.T, url, content string) {
	t.Helper()
	_, err := f.engine.IndexDocument(context.Background(), index.Document{URL: url, Content: content})
	require.NoError(t, err)
}

func TestSearchEmptyCorpus(t *testing.T) {
	f := newFixture(t)

	res, err := f.executor.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.NotNil(t, res.URLs)
	assert.Empty(t, res.URLs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("zero_result")))
}

func TestSearchNoTerms(t *testing.T) {
	f := newFixture(t)
	f.index(t, "a", "apple")

	res, err := f.executor.Search(context.Background(), "++")
	require.NoError(t, err)
	assert.Empty(t, res.URLs)
}

func TestSearchUnknownTerm(t *testing.T) {
	f := newFixture(t)
	f.index(t, "a", "apple")

	res, err := f.executor.Search(context.Background(), "kiwi")
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.URLs)
	assert.Zero(t, res.TotalHits)
}

func TestSearchRanksAndIsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.index(t, "A", "apple banana")
	f.index(t, "B", "apple apple apple")

	first, err := f.executor.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, first.URLs)
	assert.Greater(t, first.Results[0].Score, first.Results[1].Score)

	for i := 0; i < 10; i++ {
		again, err := f.executor.Search(context.Background(), "apple")
		require.NoError(t, err)
		assert.Equal(t, first.URLs, again.URLs)
		assert.Equal(t, first.Results, again.Results)
	}
}

func TestSearchMultiTermAccumulates(t *testing.T) {
	f := newFixture(t)
	f.index(t, "A", "apple banana")
	f.index(t, "B", "apple apple apple")
	f.index(t, "C", "cherry")

	res, err := f.executor.Search(context.Background(), "apple+banana")
	require.NoError(t, err)
	assert.Equal(t, "A", res.URLs[0])
	assert.Equal(t, []string{"apple", "banana"}, res.Terms)
	assert.Equal(t, 2, res.TotalHits)
}

func TestSearchCapsResults(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 40; i++ {
		f.index(t, fmt.Sprintf("https://site.example/%02d", i), "apple")
	}

	res, err := f.executor.Search(context.Background(), "apple")
	require.NoError(t, err)
	assert.Len(t, res.URLs, 25)
	assert.Equal(t, 40, res.TotalHits)
	assert.Equal(t, "https://site.example/00", res.URLs[0], "equal scores fall back to url order")
}

func TestSearchStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	m := metrics.New(prometheus.NewRegistry())
	exec := New(postings, stats, Options{}, m)

	stats.EXPECT().Stats(gomock.Any()).Return(index.Stats{TotalDocuments: 2, AverageDocumentLength: 3}, nil)
	postings.EXPECT().Postings(gomock.Any(), "apple").Return(nil, errors.New("down"))

	_, err := exec.Search(context.Background(), "apple")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("error")))
}

func TestSearchStatsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	exec := New(postings, stats, Options{}, metrics.New(prometheus.NewRegistry()))

	stats.EXPECT().Stats(gomock.Any()).Return(index.Stats{}, errors.New("down"))

	_, err := exec.Search(context.Background(), "apple")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestSearchDuplicateTermCountsTwiceFetchesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	postings := mocks.NewMockPostingStore(ctrl)
	stats := mocks.NewMockCorpusStats(ctrl)
	exec := New(postings, stats, Options{}, metrics.New(prometheus.NewRegistry()))

	stats.EXPECT().Stats(gomock.Any()).Return(index.Stats{TotalDocuments: 2, AverageDocumentLength: 5}, nil)
	postings.EXPECT().Postings(gomock.Any(), "apple").
		Return(index.PostingList{{URL: "a", TermFrequency: 1, DocumentLength: 5}}, nil).
		Times(1)

	res, err := exec.Search(context.Background(), "apple+apple")
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	idf := 1 + math.Log(2)
	assert.InDelta(t, 2*idf, res.Results[0].TFIDF, 1e-12)
}
