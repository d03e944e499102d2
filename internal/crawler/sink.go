package crawler

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/resilience"
)

// Indexer is the part of client.Client the HTTP sink needs.
type Indexer interface {
	Index(ctx context.Context, doc client.Document) (*client.IndexResponse, error)
}

// HTTPSink posts each document to the indexer's /index endpoint. Once the
// indexer has failed several submissions in a row, further documents are
// rejected without a request until the breaker's cooldown has passed.
type HTTPSink struct {
	indexer Indexer
	breaker *resilience.Breaker
}

func NewHTTPSink(indexer Indexer, cfg resilience.BreakerConfig) *HTTPSink {
	return &HTTPSink{
		indexer: indexer,
		breaker: resilience.NewBreaker("indexer", cfg),
	}
}

func (s *HTTPSink) Submit(ctx context.Context, doc index.Document) error {
	return s.breaker.Execute(func() error {
		_, err := s.indexer.Index(ctx, client.Document{URL: doc.URL, Content: doc.Content})
		return err
	})
}

// KafkaSink publishes each document to the ingest topic, keyed by url.
type KafkaSink struct {
	publisher kafka.Publisher
}

func NewKafkaSink(publisher kafka.Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Submit(ctx context.Context, doc index.Document) error {
	return s.publisher.Publish(ctx, kafka.Event{Key: doc.URL, Value: doc})
}
