// Package handler exposes the index updater over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/middleware"
)

// AckMessage is the body message of a successful index call.
const AckMessage = "Processing successful"

// maxBodyBytes caps the request body; content beyond the validator limit is
// rejected there with a field error.
const maxBodyBytes = 16 << 20

type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc index.Document) (indexer.Result, error)
	Stats(ctx context.Context) (index.Stats, error)
}

type IndexResponse struct {
	Message     string `json:"message"`
	URL         string `json:"url"`
	Terms       int    `json:"terms"`
	NewDocument bool   `json:"new_document"`
}

type Handler struct {
	indexer DocumentIndexer
	tracker analytics.Tracker
	logger  *slog.Logger
}

func New(idx DocumentIndexer, tracker analytics.Tracker) *Handler {
	if tracker == nil {
		tracker = analytics.Discard
	}
	return &Handler{
		indexer: idx,
		tracker: tracker,
		logger:  slog.Default().With("component", "index-handler"),
	}
}

// Index accepts {"url","content"} and answers 200 once every term has been
// upserted. Every failure, malformed input included, is answered with a
// server error status.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var doc index.Document
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&doc); err != nil {
		err = apperrors.Wrap(apperrors.ErrMalformedInput, err, "decoding index request")
		log.Warn("rejected index request", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "invalid JSON body")
		return
	}
	if err := validator.ValidateDocument(doc); err != nil {
		log.Warn("rejected index request", "url", doc.URL, "error", err)
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	res, err := h.indexer.IndexDocument(ctx, doc)
	h.tracker.Track(analytics.IndexEvent{
		Type:        analytics.EventIndexDoc,
		URL:         doc.URL,
		Terms:       res.Terms,
		Appended:    res.Appended,
		Replaced:    res.Replaced,
		NewDocument: res.NewDocument,
		Partial:     indexer.IsPartial(err),
		Failed:      err != nil && !indexer.IsPartial(err),
		SizeBytes:   len(doc.Content),
		LatencyMs:   res.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   middleware.GetRequestID(ctx),
	})
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("indexing failed",
			"url", doc.URL,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "indexing failed")
		return
	}

	log.Info("document indexed",
		"url", doc.URL,
		"terms", res.Terms,
		"new_document", res.NewDocument,
		"latency_ms", res.Duration.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, IndexResponse{
		Message:     AckMessage,
		URL:         doc.URL,
		Terms:       res.Terms,
		NewDocument: res.NewDocument,
	})
}

// Stats serves the corpus statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.indexer.Stats(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reading corpus stats failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "stats unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /index", h.Index)
	mux.HandleFunc("POST /api/v1/index", h.Index)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
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
