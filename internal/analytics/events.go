// Package analytics collects search and index events, ships them over Kafka
// (or straight to an in-process Aggregator) and serves aggregated stats.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndexDoc   EventType = "index_document"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type        EventType `json:"type"`
	URL         string    `json:"url"`
	Terms       int       `json:"terms"`
	Appended    int       `json:"appended"`
	Replaced    int       `json:"replaced"`
	NewDocument bool      `json:"new_document"`
	Partial     bool      `json:"partial,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
	SizeBytes   int       `json:"size_bytes"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event any)
}

// Discard is a Tracker that drops every event.
var Discard Tracker = discard{}

type discard struct{}

func (discard) Track(any) {}
