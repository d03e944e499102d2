package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
)

func TestRootSpanUsesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")
	_, root := Start(ctx, "search")
	assert.Equal(t, "req-1", root.TraceID)
}

func TestRootSpanWithoutRequestIDGetsTraceID(t *testing.T) {
	_, root := Start(context.Background(), "search")
	assert.NotEmpty(t, root.TraceID)
}

func TestChildrenShareTraceID(t *testing.T) {
	ctx, root := Start(context.Background(), "search")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, child := Start(ctx, "score_term")
			child.End(cctx)
		}()
	}
	wg.Wait()

	children := root.Children()
	require.Len(t, children, 8)
	for _, c := range children {
		assert.Equal(t, root.TraceID, c.TraceID)
	}
	assert.Same(t, root, FromContext(ctx))
}

func TestEndingRootLogsTree(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logger.New(&buf, "debug", "text"))
	defer slog.SetDefault(prev)

	ctx, root := Start(context.Background(), "search")
	cctx, child := Start(ctx, "corpus_stats")
	child.SetAttr("documents", 3)
	child.End(cctx)
	assert.Empty(t, buf.String(), "child spans do not log on their own")

	root.End(ctx)
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "span=corpus_stats")
	assert.Contains(t, out, "documents=3")
}
