package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostingsRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	empty, err := s.Postings(ctx, "apple")
	require.NoError(t, err)
	assert.Empty(t, empty)

	list := index.PostingList{
		{URL: "https://a.example", TermFrequency: 0.5, DocumentLength: 12},
		{URL: "https://b.example", TermFrequency: 0.25, DocumentLength: 40},
	}
	require.NoError(t, s.ReplacePostings(ctx, "apple", list))
	got, err := s.Postings(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	require.NoError(t, s.ReplacePostings(ctx, "apple", list[1:]))
	got, err = s.Postings(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, list[1:], got)
}

func TestRegisterDocumentCountsOnce(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, index.Stats{}, stats)

	isNew, err := s.RegisterDocument(ctx, "a", 10)
	require.NoError(t, err)
	assert.True(t, isNew)
	isNew, err = s.RegisterDocument(ctx, "b", 30)
	require.NoError(t, err)
	assert.True(t, isNew)
	isNew, err = s.RegisterDocument(ctx, "a", 20)
	require.NoError(t, err)
	assert.False(t, isNew)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDocuments)
	assert.InDelta(t, 25.0, stats.AverageDocumentLength, 1e-9)
}

func TestConcurrentRegistrations(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RegisterDocument(ctx, fmt.Sprintf("https://%d.example", i%10), 8)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalDocuments)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.ReplacePostings(ctx, "kiwi", index.PostingList{{URL: "a", TermFrequency: 1, DocumentLength: 4}}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Postings(ctx, "kiwi")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
