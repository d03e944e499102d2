package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/kafka"
)

// Collector buffers events and forwards them to a Publisher from a single
// goroutine. Track never blocks; events are dropped when the buffer is full.
type Collector struct {
	publisher kafka.Publisher
	eventCh   chan any
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

func NewCollector(publisher kafka.Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan any, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the buffered ones to be
// published. Track must not be called after Close.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		close(c.eventCh)
		<-c.done
	})
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: eventKey(event), Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

func eventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return e.Query
	case IndexEvent:
		return e.URL
	default:
		return "analytics"
	}
}
