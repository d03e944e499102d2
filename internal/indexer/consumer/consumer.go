// Package consumer reads crawled documents from Kafka and indexes each of
// them with an independent IndexDocument call.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/handler"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/validator"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/metrics"
)

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that indexes every
// {"url","content"} message. Undecodable or invalid messages are logged and
// skipped so they are committed; indexing failures are returned so the
// message is left uncommitted.
func HandleMessage(idx handler.DocumentIndexer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		doc, err := kafka.DecodeJSON[index.Document](value)
		if err != nil {
			logger.Error("failed to decode document",
				"error", err,
				"key", string(key),
			)
			m.IngestMessagesTotal.WithLabelValues("invalid").Inc()
			return kafka.ErrSkip
		}
		if err := validator.ValidateDocument(doc); err != nil {
			logger.Error("invalid document", "key", string(key), "error", err)
			m.IngestMessagesTotal.WithLabelValues("invalid").Inc()
			return kafka.ErrSkip
		}

		res, err := idx.IndexDocument(ctx, doc)
		if err != nil {
			m.IngestMessagesTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("indexing document %s: %w", doc.URL, err)
		}
		m.IngestMessagesTotal.WithLabelValues("indexed").Inc()
		logger.Info("document indexed",
			"url", doc.URL,
			"terms", res.Terms,
			"new_document", res.NewDocument,
		)
		return nil
	}
}
