// Package analytics records catalogue query events and aggregates them into
// usage statistics: popular and zero-result queries, cache effectiveness
// and latency percentiles.
package analytics

import "time"

// Operation names the query endpoint an event came from.
type Operation string

const (
	OpSearch       Operation = "search"
	OpRelated      Operation = "related"
	OpGet          Operation = "get"
	OpList         Operation = "list"
	OpListCategory Operation = "list_category"
	OpListTag      Operation = "list_tag"
)

type EventType string

const (
	EventQuery  EventType = "query"
	EventReload EventType = "reload"
)

// QueryEvent describes one answered catalogue query. Query holds the search
// text, or the category, tag or post id the lookup was keyed on.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Operation Operation `json:"operation"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	Page      int       `json:"page,omitempty"`
	PageSize  int       `json:"page_size,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// ReloadEvent describes one catalogue reload attempt.
type ReloadEvent struct {
	Type      EventType `json:"type"`
	Trigger   string    `json:"trigger"`
	Version   string    `json:"version"`
	Posts     int       `json:"posts"`
	Changed   bool      `json:"changed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope reads just the discriminator of an encoded event.
type envelope struct {
	Type EventType `json:"type"`
}
