// Package pagination slices ordered result sets into 1-indexed pages.
package pagination

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
)

// Page is one page of an ordered result set. Items is never nil.
type Page[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"totalCount"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Validate reports a non-positive page or pageSize as ErrInvalidQuery.
func Validate(page, pageSize int) error {
	if page < 1 {
		return apperrors.InvalidQueryf("page must be >= 1, got %d", page)
	}
	if pageSize < 1 {
		return apperrors.InvalidQueryf("pageSize must be >= 1, got %d", pageSize)
	}
	return nil
}

// Paginate returns page of items. A page past the end is empty with
// HasNext false; it is not an error. The returned Items never alias items.
func Paginate[T any](items []T, page, pageSize int) (Page[T], error) {
	if err := Validate(page, pageSize); err != nil {
		return Page[T]{}, err
	}
	total := len(items)
	start := total
	// compare before multiplying so huge page numbers cannot overflow
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + pageSize
	if end > total || end < start {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:      out,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasNext:    end < total,
		HasPrev:    page > 1,
	}, nil
}

// Map converts the items of p with fn, keeping its paging fields.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, item := range p.Items {
		out[i] = fn(item)
	}
	return Page[U]{
		Items:      out,
		TotalCount: p.TotalCount,
		Page:       p.Page,
		PageSize:   p.PageSize,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}
