package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
)

// DefaultLatencyWindow is how many recent latencies feed the percentiles.
const DefaultLatencyWindow = 10000

// DefaultMaxTrackedKeys bounds each per-query, per-tag and per-category count
// map. Reaching it drops the less frequent half of the keys.
const DefaultMaxTrackedKeys = 5000

type AggregatedStats struct {
	TotalQueries      int64               `json:"total_queries"`
	ByOperation       map[Operation]int64 `json:"by_operation"`
	CacheHits         int64               `json:"cache_hits"`
	CacheMisses       int64               `json:"cache_misses"`
	ZeroResultCount   int64               `json:"zero_result_count"`
	AvgLatencyMs      float64             `json:"avg_latency_ms"`
	P50LatencyMs      int64               `json:"p50_latency_ms"`
	P95LatencyMs      int64               `json:"p95_latency_ms"`
	P99LatencyMs      int64               `json:"p99_latency_ms"`
	TopQueries        []QueryCount        `json:"top_queries"`
	ZeroResultQueries []QueryCount        `json:"zero_result_queries"`
	TopTags           []QueryCount        `json:"top_tags"`
	TopCategories     []QueryCount        `json:"top_categories"`
	QueriesPerMinute  float64             `json:"queries_per_minute"`
	Reloads           int64               `json:"reloads"`
	FailedReloads     int64               `json:"failed_reloads"`
	LastReload        *ReloadEvent        `json:"last_reload,omitempty"`
	CapturedAt        time.Time           `json:"captured_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds query and reload events into running statistics. It is
// fed either in-process through Record or from Kafka through HandleEvent.
type Aggregator struct {
	mu                sync.Mutex
	totalQueries      int64
	byOperation       map[Operation]int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	latencies         []int64
	latencyNext       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	tagCounts         map[string]int64
	categoryCounts    map[string]int64
	maxKeys           int
	reloads           int64
	failedReloads     int64
	lastReload        *ReloadEvent
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

// NewAggregator keeps the last window latencies; window <= 0 uses
// DefaultLatencyWindow.
func NewAggregator(window int) *Aggregator {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &Aggregator{
		byOperation:       make(map[Operation]int64),
		latencies:         make([]int64, 0, window),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		tagCounts:         make(map[string]int64),
		categoryCounts:    make(map[string]int64),
		maxKeys:           DefaultMaxTrackedKeys,
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Decode(value); err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		}
		return nil
	}
}

// Decode records one JSON-encoded QueryEvent or ReloadEvent.
func (a *Aggregator) Decode(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decoding event envelope: %w", err)
	}
	switch env.Type {
	case EventQuery:
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			return err
		}
		a.Record(event)
	case EventReload:
		event, err := kafka.DecodeJSON[ReloadEvent](value)
		if err != nil {
			return err
		}
		a.RecordReload(event)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

// Publish lets the aggregator stand in for a Kafka producer when analytics
// run inside the query service.
func (a *Aggregator) Publish(_ context.Context, event kafka.Event) error {
	switch ev := event.Value.(type) {
	case QueryEvent:
		a.Record(ev)
	case ReloadEvent:
		a.RecordReload(ev)
	default:
		return fmt.Errorf("unsupported analytics event %T", event.Value)
	}
	return nil
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	a.byOperation[event.Operation]++
	if event.CacheHit {
		a.cacheHits++
	} else if event.Operation == OpSearch {
		a.cacheMisses++
	}
	a.observeLatency(event.LatencyMs)

	switch event.Operation {
	case OpSearch:
		q := normalizeQuery(event)
		if q == "" {
			break
		}
		a.count(a.queryCounts, q)
		if event.TotalHits == 0 {
			a.zeroResults++
			a.count(a.zeroResultQueries, q)
		}
	case OpListTag:
		a.count(a.tagCounts, event.Query)
	case OpListCategory:
		a.count(a.categoryCounts, event.Query)
	}
}

// count increments key, pruning counts first when a new key would exceed
// maxKeys.
func (a *Aggregator) count(counts map[string]int64, key string) {
	if _, ok := counts[key]; !ok && a.maxKeys > 0 && len(counts) >= a.maxKeys {
		prune(counts, a.maxKeys/2)
	}
	counts[key]++
}

// prune keeps the keep most frequent keys, ordered as topN orders them.
func prune(counts map[string]int64, keep int) {
	for _, qc := range topN(counts, len(counts))[keep:] {
		delete(counts, qc.Query)
	}
}

func (a *Aggregator) RecordReload(event ReloadEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reloads++
	if event.Error != "" {
		a.failedReloads++
	}
	a.lastReload = &event
}

// observeLatency overwrites the oldest sample once the window is full.
func (a *Aggregator) observeLatency(ms int64) {
	if len(a.latencies) < cap(a.latencies) {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.latencyNext] = ms
	a.latencyNext = (a.latencyNext + 1) % len(a.latencies)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries,
		ByOperation:     make(map[Operation]int64, len(a.byOperation)),
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		Reloads:         a.reloads,
		FailedReloads:   a.failedReloads,
		CapturedAt:      a.now().UTC(),
	}
	for op, n := range a.byOperation {
		stats.ByOperation[op] = n
	}
	if a.lastReload != nil {
		last := *a.lastReload
		stats.LastReload = &last
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	stats.TopTags = topN(a.tagCounts, 10)
	stats.TopCategories = topN(a.categoryCounts, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

// normalizeQuery groups searches by their terms so "JSON  api" and
// "api json" count as one query.
func normalizeQuery(event QueryEvent) string {
	if len(event.Terms) == 0 {
		return strings.ToLower(strings.TrimSpace(event.Query))
	}
	terms := make([]string, len(event.Terms))
	copy(terms, event.Terms)
	sort.Strings(terms)
	return strings.Join(terms, " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
