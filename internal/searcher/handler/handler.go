// Package handler exposes the ranking engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/middleware"
)

const maxFormBytes = 64 << 10

type Searcher interface {
	Search(ctx context.Context, query string) (*executor.SearchResult, error)
}

type Handler struct {
	searcher Searcher
	tracker  analytics.Tracker
	logger   *slog.Logger
}

func New(s Searcher, tracker analytics.Tracker) *Handler {
	if tracker == nil {
		tracker = analytics.Discard
	}
	return &Handler{
		searcher: s,
		tracker:  tracker,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search answers with a JSON array of at most 25 urls. With explain=true the
// full result, scores included, is returned instead.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query, err := queryParam(r)
	if err != nil {
		err = apperrors.Wrap(apperrors.ErrMalformedInput, err, "reading query")
		log.Warn("rejected search request", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "invalid query")
		return
	}
	ctx = logger.With(ctx, "query", query)
	log = logger.FromContext(ctx)

	result, err := h.searcher.Search(ctx, query)
	latencyMs := time.Since(start).Milliseconds()
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "error", err, "status_code", statusCode)
		h.tracker.Track(analytics.SearchEvent{
			Type:      analytics.EventSearch,
			Query:     query,
			Failed:    true,
			LatencyMs: latencyMs,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
		h.writeError(w, statusCode, "search failed")
		return
	}

	log.Info("search completed",
		"total_hits", result.TotalHits,
		"returned", len(result.URLs),
		"latency_ms", latencyMs,
	)
	eventType := analytics.EventSearch
	if len(result.URLs) == 0 {
		eventType = analytics.EventZeroResult
	}
	h.tracker.Track(analytics.SearchEvent{
		Type:      eventType,
		Query:     query,
		Terms:     result.Terms,
		TotalHits: result.TotalHits,
		Returned:  len(result.URLs),
		LatencyMs: latencyMs,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})

	if explain, _ := rawParam(r.URL.RawQuery, "explain"); explain == "true" {
		h.writeJSON(w, http.StatusOK, result)
		return
	}
	h.writeJSON(w, http.StatusOK, result.URLs)
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, path := range []string{"/search", "/api/v1/search"} {
		mux.HandleFunc("GET "+path, h.Search)
		mux.HandleFunc("POST "+path, h.Search)
	}
}

// queryParam reads q from the raw query string, or from a form body on POST.
// url.Values would turn '+' into a space, so the value is path-unescaped
// instead and '+' survives as the term delimiter.
func queryParam(r *http.Request) (string, error) {
	q, ok := rawParam(r.URL.RawQuery, "q")
	if !ok && r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
		if err != nil {
			return "", fmt.Errorf("reading form body: %w", err)
		}
		q, _ = rawParam(string(body), "q")
	}
	unescaped, err := url.PathUnescape(q)
	if err != nil {
		return "", fmt.Errorf("unescaping q: %w", err)
	}
	return unescaped, nil
}

// rawParam returns the still-escaped value of the first key parameter.
func rawParam(raw, key string) (string, bool) {
	for _, pair := range strings.Split(raw, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
