package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue/source"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/tracing"
)

// Trigger names what caused a reload.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerWatch   Trigger = "watch"
	TriggerManual  Trigger = "manual"
	TriggerKafka   Trigger = "kafka"
)

// SnapshotStore is the serving side of a reload: it holds the active
// snapshot and replaces it atomically.
type SnapshotStore interface {
	Current() *index.Snapshot
	Swap(next *index.Snapshot) (previous *index.Snapshot)
}

// Result describes a successful reload.
type Result struct {
	Trigger         Trigger       `json:"trigger"`
	Stats           index.Stats   `json:"snapshot"`
	PreviousVersion string        `json:"previous_version,omitempty"`
	Changed         bool          `json:"changed"`
	Duration        time.Duration `json:"duration_ns"`
}

// Reloader runs fetch, validate, build and swap as one serialized step. A
// failed reload leaves the active snapshot untouched.
type Reloader struct {
	src     source.Source
	store   SnapshotStore
	cfg     config.CatalogueConfig
	metrics *metrics.Metrics
	tracing bool
	hooks   []func(Trigger, Result, error)
	now     func() time.Time
	mu      sync.Mutex
	logger  *slog.Logger
}

type Option func(*Reloader)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reloader) { r.metrics = m }
}

// WithTracing logs a span tree for every reload.
func WithTracing(enabled bool) Option {
	return func(r *Reloader) { r.tracing = enabled }
}

// OnReload registers fn to run after every reload attempt, successful or
// not, while the reload lock is still held.
func OnReload(fn func(trigger Trigger, res Result, err error)) Option {
	return func(r *Reloader) { r.hooks = append(r.hooks, fn) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reloader) { r.now = now }
}

func NewReloader(src source.Source, store SnapshotStore, cfg config.CatalogueConfig, opts ...Option) *Reloader {
	r := &Reloader{
		src:    src,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "reloader", "source", src.Name()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload fetches the catalogue and swaps in a new snapshot when its content
// differs from the active one. Concurrent calls run one at a time.
func (r *Reloader) Reload(ctx context.Context, trigger Trigger) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	var root *tracing.Span
	if r.tracing {
		ctx, root = tracing.StartSpan(ctx, "catalogue.reload", logger.RequestID(ctx))
		root.SetAttr("trigger", string(trigger))
	}

	res, err := r.reload(ctx, trigger)
	res.Duration = time.Since(start)
	root.End(err)
	root.Log(r.logger)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if r.metrics != nil {
		r.metrics.ReloadsTotal.WithLabelValues(string(trigger), status).Inc()
		r.metrics.ReloadDuration.Observe(res.Duration.Seconds())
	}
	for _, hook := range r.hooks {
		hook(trigger, res, err)
	}
	if err != nil {
		r.logger.Error("catalogue reload failed",
			"trigger", trigger,
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return Result{}, err
	}
	r.logger.Info("catalogue reloaded",
		"trigger", trigger,
		"version", res.Stats.Version,
		"posts", res.Stats.Posts,
		"terms", res.Stats.Terms,
		"changed", res.Changed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (r *Reloader) reload(ctx context.Context, trigger Trigger) (Result, error) {
	res := Result{Trigger: trigger}

	raw, err := r.fetch(ctx)
	if err != nil {
		return res, err
	}

	_, span := tracing.StartChildSpan(ctx, "catalogue.load")
	cat, err := catalogue.Load(raw)
	span.SetAttr("records", len(raw))
	span.End(err)
	if err != nil {
		return res, fmt.Errorf("loading catalogue from %s: %w", r.src.Name(), err)
	}

	_, span = tracing.StartChildSpan(ctx, "index.build")
	snap, err := Build(cat, r.now())
	span.End(err)
	if err != nil {
		return res, err
	}

	current := r.store.Current()
	if current != nil {
		res.PreviousVersion = current.Version()
		if current.Version() == snap.Version() {
			res.Stats = current.Stats()
			return res, nil
		}
	}

	_, span = tracing.StartChildSpan(ctx, "snapshot.swap")
	r.store.Swap(snap)
	span.SetAttr("version", snap.Version())
	span.End(nil)

	res.Stats = snap.Stats()
	res.Changed = true
	if r.metrics != nil {
		r.metrics.CataloguePosts.Set(float64(res.Stats.Posts))
		r.metrics.IndexTerms.Set(float64(res.Stats.Terms))
	}
	return res, nil
}

func (r *Reloader) fetch(ctx context.Context) ([]catalogue.RawPost, error) {
	ctx, span := tracing.StartChildSpan(ctx, "catalogue.fetch")
	var raw []catalogue.RawPost
	retryCfg := resilience.RetryConfig{
		MaxAttempts:  r.cfg.Retry.MaxAttempts,
		InitialDelay: r.cfg.Retry.InitialDelay,
		MaxDelay:     r.cfg.Retry.MaxDelay,
	}
	err := resilience.Retry(ctx, "catalogue fetch", retryCfg, func() error {
		var posts []catalogue.RawPost
		err := resilience.WithTimeout(ctx, r.cfg.FetchTimeout, "catalogue fetch", func(ctx context.Context) error {
			var err error
			posts, err = r.src.Fetch(ctx)
			return err
		})
		if err == nil {
			raw = posts
		}
		return err
	})
	span.SetAttr("records", len(raw))
	span.End(err)
	if err != nil {
		return nil, fmt.Errorf("fetching catalogue from %s: %w", r.src.Name(), err)
	}
	return raw, nil
}
