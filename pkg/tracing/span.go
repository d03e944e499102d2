// Package tracing records in-process span trees for one request and writes
// them to the request's logger when the root span ends.
package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
)

type contextKey struct{}

// Span is one timed step. Children may be added concurrently.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
	root     bool
}

// Start opens a span under the span already in ctx, or a new root span
// whose trace id is the request id (a fresh UUID when there is none).
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.root = true
		span.TraceID = logger.RequestID(ctx)
		if span.TraceID == "" {
			span.TraceID = uuid.NewString()
		}
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End stops the clock. Ending a root span logs the whole tree at debug level.
func (s *Span) End(ctx context.Context) {
	s.Duration = time.Since(s.Start)
	if s.root {
		s.log(ctx, 0)
	}
}

// Children returns a snapshot of the direct children.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

func (s *Span) log(ctx context.Context, depth int) {
	log := logger.FromContext(ctx)
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", float64(s.Duration.Microseconds()) / 1000,
		"depth", depth,
	}, s.attrs...)
	s.mu.Unlock()
	log.Debug("span", attrs...)
	for _, child := range s.Children() {
		child.log(ctx, depth+1)
	}
}
