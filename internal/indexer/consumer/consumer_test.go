package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/keylock"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

func TestHandleMessageIndexes(t *testing.T) {
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	engine := indexer.NewEngine(store, store, keylock.NewLocal(), indexer.Options{TermConcurrency: 2}, m)
	handle := HandleMessage(engine, m)

	err := handle(context.Background(), []byte("u"), []byte(`{"url":"u","content":"apple banana"}`))
	require.NoError(t, err)

	list, _ := store.Postings(context.Background(), "banana")
	assert.Len(t, list, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestMessagesTotal.WithLabelValues("indexed")))
}

func TestHandleMessageSkipsBadInput(t *testing.T) {
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	engine := indexer.NewEngine(store, store, keylock.NewLocal(), indexer.Options{}, m)
	handle := HandleMessage(engine, m)

	assert.ErrorIs(t, handle(context.Background(), nil, []byte("nope")), kafka.ErrSkip)
	assert.ErrorIs(t, handle(context.Background(), nil, []byte(`{"content":"x"}`)), kafka.ErrSkip)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestMessagesTotal.WithLabelValues("invalid")))
}

type brokenIndexer struct{}

func (brokenIndexer) IndexDocument(context.Context, index.Document) (indexer.Result, error) {
	return indexer.Result{}, errors.New("down")
}

func (brokenIndexer) Stats(context.Context) (index.Stats, error) { return index.Stats{}, nil }

func TestHandleMessageReturnsIndexFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	err := HandleMessage(brokenIndexer{}, m)(context.Background(), nil, []byte(`{"url":"u","content":"x"}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, kafka.ErrSkip)
}
