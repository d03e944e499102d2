// Package logger configures slog and carries request-scoped log attributes
// through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	attrsKey
)

// Setup installs the process-wide slog logger writing to stdout.
func Setup(level string, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger for w. Format "json" selects the JSON handler, anything
// else the text handler.
func New(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithRequestID tags ctx with the id of the request being served.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// With returns a ctx whose FromContext loggers carry args in addition to
// whatever ctx already carried.
func With(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(attrsKey).([]any)
	attrs := make([]any, 0, len(prev)+len(args))
	attrs = append(attrs, prev...)
	attrs = append(attrs, args...)
	return context.WithValue(ctx, attrsKey, attrs)
}

// FromContext returns the default logger annotated with the request id and
// the attributes attached through With.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id := RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}
	if attrs, _ := ctx.Value(attrsKey).([]any); len(attrs) > 0 {
		log = log.With(attrs...)
	}
	return log
}

// parseLevel accepts slog's level names in any case, with offsets such as
// "debug+2". Unknown names fall back to info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
