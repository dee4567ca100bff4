package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/cataloguetest"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failErr error
	gets    atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return "", m.failErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) fail(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func trioEngine(t *testing.T) *engine.Engine {
	t.Helper()
	snap, err := indexer.Build(cataloguetest.MustLoad(t, cataloguetest.Trio()), time.Now())
	require.NoError(t, err)
	return engine.NewWithSnapshot(snap)
}

func searchFn(t *testing.T, e *engine.Engine, plan *parser.QueryPlan, page, size int, calls *atomic.Int64) func() (*engine.SearchResult, error) {
	return func() (*engine.SearchResult, error) {
		calls.Add(1)
		return e.SearchPlan(e.Current(), plan, page, size)
	}
}

var redisCfg = config.RedisConfig{CacheTTL: time.Minute}

func TestGetOrComputeHitAfterMiss(t *testing.T) {
	store := newMemStore()
	c := New(store, redisCfg)
	e := trioEngine(t)
	version := e.Current().Version()
	var calls atomic.Int64

	plan := parser.Parse("json security")
	first, hit, err := c.GetOrCompute(context.Background(), version, plan, 1, 10, searchFn(t, e, plan, 1, 10, &calls))
	require.NoError(t, err)
	assert.False(t, hit)

	other := parser.Parse("Security JSON json")
	second, hit, err := c.GetOrCompute(context.Background(), version, other, 1, 10, searchFn(t, e, other, 1, 10, &calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(1), calls.Load())

	require.Len(t, second.Items, len(first.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].ID, second.Items[i].ID)
		assert.Equal(t, first.Items[i].Score, second.Items[i].Score)
		assert.Equal(t, first.Items[i].Date, second.Items[i].Date)
	}
	assert.Equal(t, "Security JSON json", second.Query, "hits echo the caller's query")
	assert.Equal(t, []string{"security", "json"}, second.Terms)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
	assert.Equal(t, "closed", stats.Circuit)
	assert.Equal(t, time.Minute, store.ttls[BuildKey(version, plan, 1, 10)])
}

func TestBuildKey(t *testing.T) {
	plan := parser.Parse("json security")
	base := BuildKey("abc", plan, 1, 10)

	assert.True(t, strings.HasPrefix(base, keyPrefix+"abc:"))
	assert.Equal(t, base, BuildKey("abc", parser.Parse("SECURITY, json!"), 1, 10))
	assert.NotEqual(t, base, BuildKey("abd", plan, 1, 10))
	assert.NotEqual(t, base, BuildKey("abc", plan, 2, 10))
	assert.NotEqual(t, base, BuildKey("abc", plan, 1, 20))
	assert.NotEqual(t, base, BuildKey("abc", parser.Parse("json"), 1, 10))

	long := strings.Repeat("f", 64)
	assert.True(t, strings.HasPrefix(BuildKey(long, plan, 1, 10), keyPrefix+strings.Repeat("f", 16)+":"))
}

func TestSingleflightSharesComputation(t *testing.T) {
	c := New(newMemStore(), redisCfg)
	plan := parser.Parse("json")
	release := make(chan struct{})
	var calls atomic.Int64
	compute := func() (*engine.SearchResult, error) {
		calls.Add(1)
		<-release
		return &engine.SearchResult{Query: "json"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load())
}

func TestComputeErrorsAreNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, redisCfg)
	plan := parser.Parse("json")
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, func() (*engine.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.len())

	res, hit, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, func() (*engine.SearchResult, error) {
		return &engine.SearchResult{Query: "json"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "json", res.Query)
}

func TestStoreFailureDegradesAndOpensCircuit(t *testing.T) {
	store := newMemStore()
	store.fail(errors.New("connection refused"))
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(store, redisCfg,
		WithMetrics(m),
		WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}),
	)
	plan := parser.Parse("json")
	var calls atomic.Int64
	compute := func() (*engine.SearchResult, error) {
		calls.Add(1)
		return &engine.SearchResult{}, nil
	}

	for i := 0; i < 5; i++ {
		_, hit, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, compute)
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, int64(5), calls.Load())
	assert.Equal(t, "open", c.Stats().Circuit)
	assert.Less(t, store.gets.Load(), int64(10), "open circuit stops calling the store")
	assert.Equal(t, float64(resilience.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis")))
	assert.Positive(t, c.Stats().Errors)
}

func TestMissesDoNotTripCircuit(t *testing.T) {
	c := New(newMemStore(), redisCfg,
		WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour}),
	)
	for i := 0; i < 5; i++ {
		plan := parser.Parse(strings.Repeat("x", i+1))
		_, _, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, func() (*engine.SearchResult, error) {
			return &engine.SearchResult{}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, "closed", c.Stats().Circuit)
	assert.Zero(t, c.Stats().Errors)
}

func TestMetricsCountHitsAndMisses(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(newMemStore(), redisCfg, WithMetrics(m))
	plan := parser.Parse("json")
	compute := func() (*engine.SearchResult, error) { return &engine.SearchResult{}, nil }

	for i := 0; i < 3; i++ {
		_, _, err := c.GetOrCompute(context.Background(), "v1", plan, 1, 10, compute)
		require.NoError(t, err)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = "x"
	c := New(store, redisCfg)
	compute := func() (*engine.SearchResult, error) { return &engine.SearchResult{}, nil }
	for _, q := range []string{"json", "security", "api"} {
		_, _, err := c.GetOrCompute(context.Background(), "v1", parser.Parse(q), 1, 10, compute)
		require.NoError(t, err)
	}

	deleted, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, 1, store.len())
}
