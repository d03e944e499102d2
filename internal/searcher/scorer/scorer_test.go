package scorer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index/mocks"
)

func TestIDF(t *testing.T) {
	assert.InDelta(t, 1+math.Log(10), IDF(10, 1), 1e-12)
	assert.InDelta(t, 1.0, IDF(5, 5), 1e-12)
}

func TestIDFDecreasesWithAppearances(t *testing.T) {
	prev := math.Inf(1)
	for appearances := int64(1); appearances < 100; appearances++ {
		idf := IDF(100, appearances)
		assert.Less(t, idf, prev)
		prev = idf
	}
}

func TestIDFDegenerateInputs(t *testing.T) {
	for _, tc := range []struct{ total, appearances int64 }{
		{0, 0}, {0, 3}, {10, 0}, {3, 10}, {-1, 1},
	} {
		idf := IDF(tc.total, tc.appearances)
		assert.Zero(t, idf, "total=%d appearances=%d", tc.total, tc.appearances)
		assert.False(t, math.IsNaN(idf) || math.IsInf(idf, 0))
	}
}

func TestBM25(t *testing.T) {
	tf, idf := 0.5, 2.0
	want := idf * (tf * (K1 + 1)) / (tf + K1*(1-B+B*(10.0/20.0)))
	assert.InDelta(t, want, BM25(tf, idf, 10, 20), 1e-12)
}

func TestBM25PenalizesLongDocuments(t *testing.T) {
	short := BM25(0.5, 1, 10, 20)
	long := BM25(0.5, 1, 40, 20)
	assert.Greater(t, short, long)
}

func TestBM25ZeroAverage(t *testing.T) {
	assert.Zero(t, BM25(0.5, 1, 10, 0))
	assert.Zero(t, BM25(0.5, 1, 10, -3))
	assert.Zero(t, BM25(0, 1, 0, 10))
}

func TestScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPostingStore(ctrl)
	store.EXPECT().Postings(gomock.Any(), "apple").Return(index.PostingList{
		{URL: "a", TermFrequency: 0.5, DocumentLength: 12},
		{URL: "b", TermFrequency: 1, DocumentLength: 17},
	}, nil)

	stats := index.Stats{TotalDocuments: 4, AverageDocumentLength: 14.5}
	ts, err := New(store).Score(context.Background(), "apple", stats)
	require.NoError(t, err)

	idf := 1 + math.Log(2)
	assert.Equal(t, 2, ts.Appearances)
	assert.InDelta(t, idf, ts.IDF, 1e-12)
	require.Len(t, ts.Postings, 2)
	assert.InDelta(t, 0.5*idf, ts.Postings[0].TFIDF, 1e-12)
	assert.InDelta(t, BM25(1, idf, 17, 14.5), ts.Postings[1].BM25, 1e-12)
}

func TestScoreUnseenTerm(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPostingStore(ctrl)
	store.EXPECT().Postings(gomock.Any(), "kiwi").Return(index.PostingList{}, nil)

	ts, err := New(store).Score(context.Background(), "kiwi", index.Stats{TotalDocuments: 3, AverageDocumentLength: 1})
	require.NoError(t, err)
	assert.Zero(t, ts.Appearances)
	assert.Empty(t, ts.Postings)
}

func TestScoreStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPostingStore(ctrl)
	cause := errors.New("down")
	store.EXPECT().Postings(gomock.Any(), "apple").Return(nil, cause)

	_, err := New(store).Score(context.Background(), "apple", index.Stats{TotalDocuments: 1})
	assert.ErrorIs(t, err, cause)
}
