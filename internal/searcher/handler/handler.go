// Package handler exposes the query engine over HTTP. It is a thin
// wrapper: parameters are parsed and validated here, every answer comes
// from the engine, and errors map to status codes through pkg/errors.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/middleware"
)

// Reloader triggers a catalogue reload on demand.
type Reloader interface {
	Reload(ctx context.Context, trigger indexer.Trigger) (indexer.Result, error)
}

// Tracker receives one analytics event per answered query.
type Tracker interface {
	Track(event any)
}

type Handler struct {
	engine    *engine.Engine
	cache     *cache.QueryCache
	reloader  Reloader
	tracker   Tracker
	analytics *analytics.Handler
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	logger    *slog.Logger
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithReloader(r Reloader) Option {
	return func(h *Handler) { h.reloader = r }
}

func WithTracker(t Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithAnalytics serves aggregated query analytics next to the query API.
func WithAnalytics(a *analytics.Handler) Option {
	return func(h *Handler) { h.analytics = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(eng *engine.Engine, cfg config.SearchConfig, opts ...Option) *Handler {
	h := &Handler{
		engine: eng,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListPosts serves GET /posts?page&pageSize&order.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, pageSize, err := h.paging(r)
	if err != nil {
		h.fail(w, r, analytics.OpList, start, err)
		return
	}
	order, err := engine.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		h.fail(w, r, analytics.OpList, start, err)
		return
	}
	result, err := h.engine.ListAll(page, pageSize, order)
	if err != nil {
		h.fail(w, r, analytics.OpList, start, err)
		return
	}
	h.done(r, analytics.QueryEvent{
		Operation: analytics.OpList,
		Query:     string(order),
		TotalHits: result.TotalCount,
		Returned:  len(result.Items),
		Page:      page,
		PageSize:  pageSize,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// GetPost serves GET /posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := pathParam(r, "id")
	post, err := h.engine.GetByID(id)
	if err != nil {
		h.fail(w, r, analytics.OpGet, start, err)
		return
	}
	h.done(r, analytics.QueryEvent{Operation: analytics.OpGet, Query: id, TotalHits: 1, Returned: 1}, start)
	h.writeJSON(w, http.StatusOK, post)
}

// Related serves GET /posts/{id}/related?n.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	n, err := intParam(r, "n", h.cfg.DefaultRelated, h.cfg.MaxRelated)
	if err != nil {
		h.fail(w, r, analytics.OpRelated, start, err)
		return
	}
	id := pathParam(r, "id")
	related, err := h.engine.Related(id, n)
	if err != nil {
		h.fail(w, r, analytics.OpRelated, start, err)
		return
	}
	h.done(r, analytics.QueryEvent{
		Operation: analytics.OpRelated,
		Query:     id,
		TotalHits: len(related),
		Returned:  len(related),
	}, start)
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "items": related})
}

// Categories serves GET /categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	facets, err := h.engine.Categories()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": facets})
}

// Tags serves GET /tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	facets, err := h.engine.Tags()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": facets})
}

// ListByCategory serves GET /categories/{category}/posts.
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, pageSize, err := h.paging(r)
	if err != nil {
		h.fail(w, r, analytics.OpListCategory, start, err)
		return
	}
	category := pathParam(r, "category")
	result, err := h.engine.ListByCategory(category, page, pageSize)
	if err != nil {
		h.fail(w, r, analytics.OpListCategory, start, err)
		return
	}
	h.done(r, analytics.QueryEvent{
		Operation: analytics.OpListCategory,
		Query:     category,
		TotalHits: result.TotalCount,
		Returned:  len(result.Items),
		Page:      page,
		PageSize:  pageSize,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// ListByTag serves GET /tags/{tag}/posts.
func (h *Handler) ListByTag(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	page, pageSize, err := h.paging(r)
	if err != nil {
		h.fail(w, r, analytics.OpListTag, start, err)
		return
	}
	tag := pathParam(r, "tag")
	result, err := h.engine.ListByTag(tag, page, pageSize)
	if err != nil {
		h.fail(w, r, analytics.OpListTag, start, err)
		return
	}
	h.done(r, analytics.QueryEvent{
		Operation: analytics.OpListTag,
		Query:     tag,
		TotalHits: result.TotalCount,
		Returned:  len(result.Items),
		Page:      page,
		PageSize:  pageSize,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// Search serves GET /search?q&page&pageSize. A missing or stop-word-only
// query is an empty result, not an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	page, pageSize, err := h.paging(r)
	if err != nil {
		h.fail(w, r, analytics.OpSearch, start, err)
		return
	}
	snap, err := h.engine.Snapshot()
	if err != nil {
		h.fail(w, r, analytics.OpSearch, start, err)
		return
	}

	plan := parser.Parse(r.URL.Query().Get("q"))
	compute := func() (*engine.SearchResult, error) {
		return h.engine.SearchPlan(snap, plan, page, pageSize)
	}
	var (
		result   *engine.SearchResult
		cacheHit bool
	)
	if h.cache != nil && !plan.Empty() {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, snap.Version(), plan, page, pageSize, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		h.fail(w, r, analytics.OpSearch, start, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SearchResultsCount.Observe(float64(result.TotalCount))
	}
	log.Info("search completed",
		"query", plan.RawQuery,
		"total_hits", result.TotalCount,
		"returned", len(result.Items),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.done(r, analytics.QueryEvent{
		Operation: analytics.OpSearch,
		Query:     plan.RawQuery,
		Terms:     plan.Terms,
		TotalHits: result.TotalCount,
		Returned:  len(result.Items),
		Page:      page,
		PageSize:  pageSize,
		CacheHit:  cacheHit,
		Version:   result.Version,
	}, start)
	h.writeJSON(w, http.StatusOK, result)
}

// Snapshot serves GET /snapshot with the active snapshot's metadata.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Stats())
}

// Reload serves POST /admin/reload. A failed reload keeps the active
// snapshot and reports why.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reloading is disabled"})
		return
	}
	res, err := h.reloader.Reload(r.Context(), indexer.TriggerManual)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// CacheStats serves GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// CacheInvalidate serves POST /cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// paging reads page and pageSize. Missing values take the defaults;
// supplied ones must be positive and within the maximum.
func (h *Handler) paging(r *http.Request) (page, pageSize int, err error) {
	page, err = intParam(r, "page", 1, 0)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err = intParam(r, "pageSize", h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// intParam parses a positive integer query parameter. max <= 0 means
// unbounded.
func intParam(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.InvalidQueryf("%s must be a positive integer, got %q", name, raw)
	}
	if max > 0 && n > max {
		return 0, apperrors.InvalidQueryf("%s must be at most %d, got %d", name, max, n)
	}
	return n, nil
}

// pathParam returns a decoded path parameter. chi matches on RawPath when the
// request carries one, so only then is the parameter still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// done records a successful query in metrics and analytics.
func (h *Handler) done(r *http.Request, event analytics.QueryEvent, start time.Time) {
	elapsed := time.Since(start)
	if h.metrics != nil {
		result := "ok"
		if event.TotalHits == 0 {
			result = "zero_result"
		}
		cacheStatus := "none"
		if event.Operation == analytics.OpSearch && h.cache != nil {
			cacheStatus = "miss"
			if event.CacheHit {
				cacheStatus = "hit"
			}
		}
		h.metrics.QueriesTotal.WithLabelValues(string(event.Operation), result).Inc()
		h.metrics.QueryLatency.WithLabelValues(string(event.Operation), cacheStatus).Observe(elapsed.Seconds())
	}
	if h.tracker != nil {
		event.Type = analytics.EventQuery
		event.LatencyMs = elapsed.Milliseconds()
		event.Timestamp = time.Now().UTC()
		event.RequestID = middleware.GetRequestID(r.Context())
		if event.Version == "" {
			if snap := h.engine.Current(); snap != nil {
				event.Version = snap.Version()
			}
		}
		h.tracker.Track(event)
	}
}

// fail records a failed query and writes its error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op analytics.Operation, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(string(op), resultLabel(err)).Inc()
		h.metrics.QueryLatency.WithLabelValues(string(op), "none").Observe(time.Since(start).Seconds())
	}
	h.writeError(w, r, err)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, apperrors.ErrNotInitialized):
		return "not_initialized"
	default:
		return "error"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its status. Server-side failures are logged and
// their details withheld from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrNotInitialized) {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
