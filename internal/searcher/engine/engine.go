// Package engine answers catalogue queries against the active index
// snapshot. Readers never lock: the snapshot is immutable and replaced
// wholesale through an atomic pointer swap, so every query sees exactly one
// consistent snapshot.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/pagination"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
)

// Order selects the direction of the full feed.
type Order string

const (
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
)

// ParseOrder accepts "", "newest", "desc", "oldest" and "asc".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest", "desc":
		return OrderNewest, nil
	case "oldest", "asc":
		return OrderOldest, nil
	default:
		return "", apperrors.InvalidQueryf("order must be newest or oldest, got %q", s)
	}
}

// ScoredPost is a post with the score it was ranked by.
type ScoredPost struct {
	*catalogue.Post
	Score int `json:"score"`
}

// SearchResult is one page of ranked search hits.
type SearchResult struct {
	pagination.Page[ScoredPost]
	Query   string   `json:"query"`
	Terms   []string `json:"terms"`
	Version string   `json:"version"`
}

type Engine struct {
	snap   atomic.Pointer[index.Snapshot]
	logger *slog.Logger
}

// New returns an engine with no snapshot; queries fail with
// ErrNotInitialized until the first Swap.
func New() *Engine {
	return &Engine{
		logger: slog.Default().With("component", "query-engine"),
	}
}

// NewWithSnapshot returns an engine serving snap.
func NewWithSnapshot(snap *index.Snapshot) *Engine {
	e := New()
	e.Swap(snap)
	return e
}

// Swap installs next and returns the snapshot it replaced. Queries already
// running finish against the snapshot they started with.
func (e *Engine) Swap(next *index.Snapshot) *index.Snapshot {
	if next == nil {
		panic("engine: Swap with nil snapshot")
	}
	prev := e.snap.Swap(next)
	attrs := []any{"version", next.Version(), "posts", next.Len()}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version())
	}
	e.logger.Info("snapshot activated", attrs...)
	return prev
}

// Current returns the active snapshot, or nil before the first Swap.
func (e *Engine) Current() *index.Snapshot {
	return e.snap.Load()
}

// Snapshot returns the active snapshot or ErrNotInitialized.
func (e *Engine) Snapshot() (*index.Snapshot, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, apperrors.NotInitializedf("no catalogue snapshot loaded")
	}
	return snap, nil
}

// GetByID returns the post with id or ErrNotFound.
func (e *Engine) GetByID(id string) (*catalogue.Post, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	p, ok := snap.Post(id)
	if !ok {
		return nil, apperrors.NotFoundf("post %q", id)
	}
	return p, nil
}

// ListByCategory pages through the posts of category, newest first. An
// unknown category is an empty page.
func (e *Engine) ListByCategory(category string, page, pageSize int) (pagination.Page[*catalogue.Post], error) {
	snap, err := e.Snapshot()
	if err != nil {
		return pagination.Page[*catalogue.Post]{}, err
	}
	return pagePosts(snap, snap.Category(category), page, pageSize)
}

// ListByTag pages through the posts carrying tag, newest first. An unknown
// tag is an empty page.
func (e *Engine) ListByTag(tag string, page, pageSize int) (pagination.Page[*catalogue.Post], error) {
	snap, err := e.Snapshot()
	if err != nil {
		return pagination.Page[*catalogue.Post]{}, err
	}
	return pagePosts(snap, snap.Tag(tag), page, pageSize)
}

// ListAll pages through every post. OrderOldest is the exact reverse of
// OrderNewest.
func (e *Engine) ListAll(page, pageSize int, order Order) (pagination.Page[*catalogue.Post], error) {
	snap, err := e.Snapshot()
	if err != nil {
		return pagination.Page[*catalogue.Post]{}, err
	}
	ids := snap.Chronological()
	switch order {
	case OrderNewest, "":
	case OrderOldest:
		if err := pagination.Validate(page, pageSize); err != nil {
			return pagination.Page[*catalogue.Post]{}, err
		}
		reversed := make([]string, len(ids))
		for i, id := range ids {
			reversed[len(ids)-1-i] = id
		}
		ids = reversed
	default:
		return pagination.Page[*catalogue.Post]{}, apperrors.InvalidQueryf("unknown order %q", order)
	}
	return pagePosts(snap, ids, page, pageSize)
}

// Search ranks posts matching any query token by summed weighted term
// frequency. A query with no searchable tokens yields an empty page.
func (e *Engine) Search(query string, page, pageSize int) (*SearchResult, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return e.SearchPlan(snap, parser.Parse(query), page, pageSize)
}

// SearchPlan runs an already parsed query against snap. Callers that cache
// results use it to pin the snapshot their cache key was derived from.
func (e *Engine) SearchPlan(snap *index.Snapshot, plan *parser.QueryPlan, page, pageSize int) (*SearchResult, error) {
	var scored []ranker.Scored
	if !plan.Empty() {
		scored = ranker.Rank(snap, plan.Terms)
	}
	p, err := pagination.Paginate(scored, page, pageSize)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"total_hits", p.TotalCount,
		"returned", len(p.Items),
	)
	return &SearchResult{
		Page:    pagination.Map(p, scoredPost(snap)),
		Query:   plan.RawQuery,
		Terms:   plan.Terms,
		Version: snap.Version(),
	}, nil
}

// Related returns up to n posts sharing tags or the category with the post
// id, best first. The post itself is never included.
func (e *Engine) Related(id string, n int) ([]ScoredPost, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, apperrors.InvalidQueryf("n must be >= 1, got %d", n)
	}
	target, ok := snap.Post(id)
	if !ok {
		return nil, apperrors.NotFoundf("post %q", id)
	}
	top := merger.TopN(ranker.RelatedCandidates(snap, target), n, ranker.Better(snap))
	out := make([]ScoredPost, len(top))
	toPost := scoredPost(snap)
	for i, s := range top {
		out[i] = toPost(s)
	}
	return out, nil
}

// Categories returns category facets, largest first.
func (e *Engine) Categories() ([]index.Facet, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Categories(), nil
}

// Tags returns tag facets, largest first.
func (e *Engine) Tags() ([]index.Facet, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Tags(), nil
}

func pagePosts(snap *index.Snapshot, ids []string, page, pageSize int) (pagination.Page[*catalogue.Post], error) {
	p, err := pagination.Paginate(ids, page, pageSize)
	if err != nil {
		return pagination.Page[*catalogue.Post]{}, err
	}
	return pagination.Map(p, func(id string) *catalogue.Post {
		post, ok := snap.Post(id)
		if !ok {
			panic(fmt.Sprintf("snapshot %s lists unknown post %q", snap.Version(), id))
		}
		return post
	}), nil
}

func scoredPost(snap *index.Snapshot) func(ranker.Scored) ScoredPost {
	return func(s ranker.Scored) ScoredPost {
		post, ok := snap.Post(s.PostID)
		if !ok {
			panic(fmt.Sprintf("snapshot %s scored unknown post %q", snap.Version(), s.PostID))
		}
		return ScoredPost{Post: post, Score: s.Score}
	}
}
