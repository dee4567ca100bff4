package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/ratelimit"
)

// RouterConfig selects the middleware wrapped around the API. Zero values
// disable the corresponding middleware.
type RouterConfig struct {
	Metrics        *metrics.Metrics
	CORSOrigins    []string
	RequestTimeout time.Duration
	Limiter        *ratelimit.Limiter
	AdminToken     string
}

// NewRouter builds the HTTP API.
//
//	GET  /health/live
//	GET  /health/ready
//	GET  /api/v1/posts                       ?page&pageSize&order
//	GET  /api/v1/posts/{id}
//	GET  /api/v1/posts/{id}/related          ?n
//	GET  /api/v1/categories
//	GET  /api/v1/categories/{category}/posts ?page&pageSize
//	GET  /api/v1/tags
//	GET  /api/v1/tags/{tag}/posts            ?page&pageSize
//	GET  /api/v1/search                      ?q&page&pageSize
//	GET  /api/v1/snapshot
//	GET  /api/v1/cache/stats
//	GET  /api/v1/analytics
//	GET  /api/v1/analytics/history           ?limit
//	POST /api/v1/admin/reload                (admin)
//	POST /api/v1/cache/invalidate            (admin)
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → RateLimit → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, rc RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if len(rc.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(rc.CORSOrigins)))
	}
	if rc.Metrics != nil {
		r.Use(middleware.Metrics(rc.Metrics))
	}
	if rc.Limiter != nil {
		r.Use(middleware.RateLimit(rc.Limiter))
	}
	if rc.RequestTimeout > 0 {
		r.Use(middleware.Timeout(rc.RequestTimeout))
	}

	if checker != nil {
		r.Get("/health/live", checker.LiveHandler())
		r.Get("/health/ready", checker.ReadyHandler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/posts/{id}/related", h.Related)
		r.Get("/categories", h.Categories)
		r.Get("/categories/{category}/posts", h.ListByCategory)
		r.Get("/tags", h.Tags)
		r.Get("/tags/{tag}/posts", h.ListByTag)
		r.Get("/search", h.Search)
		r.Get("/snapshot", h.Snapshot)
		r.Get("/cache/stats", h.CacheStats)
		if h.analytics != nil {
			r.Get("/analytics", h.analytics.Stats)
			r.Get("/analytics/history", h.analytics.History)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminToken(rc.AdminToken))
			r.Post("/admin/reload", h.Reload)
			r.Post("/cache/invalidate", h.CacheInvalidate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}
