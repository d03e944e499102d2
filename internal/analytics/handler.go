package analytics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// maxTopQueries caps the ?top= parameter.
const maxTopQueries = 100

// Handler serves the aggregated analytics as JSON.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
}

// Stats writes the current totals. ?top=N sets how many top and zero-result
// queries are listed (1..100, default 10).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top, err := topParam(r.URL.Query().Get("top"))
	if err != nil {
		h.write(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.write(w, http.StatusOK, h.aggregator.StatsTop(top))
}

func topParam(raw string) (int, error) {
	if raw == "" {
		return DefaultTopQueries, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxTopQueries {
		return 0, fmt.Errorf("top must be an integer between 1 and %d", maxTopQueries)
	}
	return n, nil
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
