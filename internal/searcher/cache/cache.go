// Package cache stores search result pages in Redis. Keys embed the
// snapshot version, so a reload never serves results computed against an
// older catalogue; stale entries simply age out through the TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "content:search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Circuit string  `json:"circuit"`
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	group      singleflight.Group
	breaker    *resilience.CircuitBreaker
	breakerCfg resilience.CircuitBreakerConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
	errors     atomic.Int64
}

type Option func(*QueryCache)

// WithMetrics records hits, misses and circuit state in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

// WithCircuitBreaker overrides the breaker guarding the store.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *QueryCache) { c.breakerCfg = cfg }
}

func New(store Store, cfg config.RedisConfig, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:  store,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	bc := c.breakerCfg
	if c.metrics != nil {
		gauge := c.metrics.CircuitBreakerState
		gauge.WithLabelValues("redis").Set(float64(resilience.StateClosed))
		bc.OnStateChange = func(name string, _, to resilience.State) {
			gauge.WithLabelValues(name).Set(float64(to))
		}
	}
	c.breaker = resilience.NewCircuitBreaker("redis", bc)
	return c
}

// GetOrCompute returns the cached page for plan against the snapshot
// version, computing and storing it on a miss. Concurrent misses for the same
// key share one computation. The boolean reports a cache hit. Store failures
// degrade to computing the result; only compute errors are returned.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	version string,
	plan *parser.QueryPlan,
	page, pageSize int,
	compute func() (*engine.SearchResult, error),
) (*engine.SearchResult, bool, error) {
	key := BuildKey(version, plan, page, pageSize)
	if result, ok := c.get(ctx, key); ok {
		return withPlan(result, plan), true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withPlan(val.(*engine.SearchResult), plan), false, nil
}

func (c *QueryCache) get(ctx context.Context, key string) (*engine.SearchResult, bool) {
	result, ok := c.lookup(ctx, key)
	if ok {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return result, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, false
}

func (c *QueryCache) lookup(ctx context.Context, key string) (*engine.SearchResult, bool) {
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	}, pkgredis.IsNilError)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.errors.Add(1)
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var result engine.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *engine.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every cached search page.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Hits:    hits,
		Misses:  misses,
		Errors:  c.errors.Load(),
		Total:   hits + misses,
		Circuit: c.breaker.GetState().String(),
	}
	if s.Total > 0 {
		s.HitRate = float64(hits) / float64(s.Total)
	}
	return s
}

// BuildKey derives the cache key of one result page. Queries with the same
// normalized terms share a key regardless of case, order or repetition.
func BuildKey(version string, plan *parser.QueryPlan, page, pageSize int) string {
	raw := fmt.Sprintf("%s|page=%d|size=%d", plan.Normalized(), page, pageSize)
	hash := sha256.Sum256([]byte(raw))
	if len(version) > 16 {
		version = version[:16]
	}
	return fmt.Sprintf("%s%s:%x", keyPrefix, version, hash[:16])
}

// withPlan echoes the caller's own query on a shared result.
func withPlan(result *engine.SearchResult, plan *parser.QueryPlan) *engine.SearchResult {
	out := *result
	out.Query = plan.RawQuery
	out.Terms = plan.Terms
	return &out
}
