package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/kafka"
)

func search(query string, terms []string, hits int, latency int64, cacheHit bool) QueryEvent {
	return QueryEvent{
		Type:      EventQuery,
		Operation: OpSearch,
		Query:     query,
		Terms:     terms,
		TotalHits: hits,
		LatencyMs: latency,
		CacheHit:  cacheHit,
	}
}

func TestAggregatorRecord(t *testing.T) {
	agg := NewAggregator(0)
	agg.Record(search("JSON api", []string{"json", "api"}, 4, 10, false))
	agg.Record(search("api json", []string{"api", "json"}, 4, 20, true))
	agg.Record(search("kubernetes", []string{"kubernetes"}, 0, 30, false))
	agg.Record(QueryEvent{Type: EventQuery, Operation: OpListTag, Query: "JSON", TotalHits: 2, LatencyMs: 1})
	agg.Record(QueryEvent{Type: EventQuery, Operation: OpListCategory, Query: "Security", TotalHits: 1, LatencyMs: 1})

	stats := agg.Stats()
	assert.Equal(t, int64(5), stats.TotalQueries)
	assert.Equal(t, int64(3), stats.ByOperation[OpSearch])
	assert.Equal(t, int64(1), stats.ByOperation[OpListTag])
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, []QueryCount{{Query: "api json", Count: 2}, {Query: "kubernetes", Count: 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{Query: "kubernetes", Count: 1}}, stats.ZeroResultQueries)
	assert.Equal(t, []QueryCount{{Query: "JSON", Count: 1}}, stats.TopTags)
	assert.Equal(t, []QueryCount{{Query: "Security", Count: 1}}, stats.TopCategories)
	assert.InDelta(t, 12.4, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(10), stats.P50LatencyMs)
	assert.Equal(t, int64(30), stats.P99LatencyMs)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator(4)
	for i := int64(1); i <= 10; i++ {
		agg.Record(search("q", []string{"q"}, 1, i*100, false))
	}
	agg.mu.Lock()
	assert.Len(t, agg.latencies, 4)
	assert.ElementsMatch(t, []int64{700, 800, 900, 1000}, agg.latencies)
	agg.mu.Unlock()
	assert.InDelta(t, 850, agg.Stats().AvgLatencyMs, 1e-9)
}

func TestAggregatorTrackedKeysAreBounded(t *testing.T) {
	agg := NewAggregator(0)
	agg.maxKeys = 4
	for i := 0; i < 5; i++ {
		agg.Record(search("hot", []string{"hot"}, 0, 1, false))
	}
	for i := 0; i < 3; i++ {
		agg.Record(search("warm", []string{"warm"}, 2, 1, false))
	}
	for i := 0; i < 20; i++ {
		q := fmt.Sprintf("rare%d", i)
		agg.Record(search(q, []string{q}, 0, 1, false))
		agg.Record(QueryEvent{Type: EventQuery, Operation: OpListTag, Query: q})
	}

	assert.LessOrEqual(t, len(agg.queryCounts), 4)
	assert.LessOrEqual(t, len(agg.zeroResultQueries), 4)
	assert.LessOrEqual(t, len(agg.tagCounts), 4)

	stats := agg.Stats()
	assert.Equal(t, int64(48), stats.TotalQueries)
	require.GreaterOrEqual(t, len(stats.TopQueries), 2)
	assert.Equal(t, QueryCount{Query: "hot", Count: 5}, stats.TopQueries[0])
	assert.Equal(t, QueryCount{Query: "warm", Count: 3}, stats.TopQueries[1])
	assert.Equal(t, QueryCount{Query: "hot", Count: 5}, stats.ZeroResultQueries[0])
}

func TestAggregatorReloads(t *testing.T) {
	agg := NewAggregator(0)
	agg.RecordReload(ReloadEvent{Type: EventReload, Trigger: "startup", Version: "v1", Posts: 3, Changed: true})
	agg.RecordReload(ReloadEvent{Type: EventReload, Trigger: "watch", Error: "duplicate id"})

	stats := agg.Stats()
	assert.Equal(t, int64(2), stats.Reloads)
	assert.Equal(t, int64(1), stats.FailedReloads)
	require.NotNil(t, stats.LastReload)
	assert.Equal(t, "watch", stats.LastReload.Trigger)
}

func TestHandleEventDecodesBothEventTypes(t *testing.T) {
	agg := NewAggregator(0)
	handle := HandleEvent(agg)

	q, err := json.Marshal(search("json", []string{"json"}, 2, 5, false))
	require.NoError(t, err)
	r, err := json.Marshal(ReloadEvent{Type: EventReload, Trigger: "kafka", Version: "v2"})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), []byte("search"), q))
	require.NoError(t, handle(context.Background(), []byte("reload"), r))
	assert.NoError(t, handle(context.Background(), nil, []byte("not json")), "bad messages are skipped")
	assert.NoError(t, handle(context.Background(), nil, []byte(`{"type":"mystery"}`)))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.Reloads)
	assert.Error(t, agg.Decode([]byte(`{"type":"mystery"}`)))
}

func TestAggregatorPublish(t *testing.T) {
	agg := NewAggregator(0)
	require.NoError(t, agg.Publish(context.Background(), kafka.Event{Value: search("json", nil, 1, 1, false)}))
	require.NoError(t, agg.Publish(context.Background(), kafka.Event{Value: ReloadEvent{Trigger: "manual"}}))
	assert.Error(t, agg.Publish(context.Background(), kafka.Event{Value: "nope"}))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, []QueryCount{{Query: "json", Count: 1}}, stats.TopQueries)
}

func TestQueriesPerMinute(t *testing.T) {
	agg := NewAggregator(0)
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }
	for i := 0; i < 6; i++ {
		agg.Record(search("json", nil, 1, 1, false))
	}
	assert.InDelta(t, 3.0, agg.Stats().QueriesPerMinute, 1e-9)
}

func TestTopNBreaksTiesByName(t *testing.T) {
	got := topN(map[string]int64{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	assert.Equal(t, []QueryCount{{"c", 5}, {"a", 2}, {"b", 2}}, got)
}
