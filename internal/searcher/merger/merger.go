// Package merger selects the best n items of a candidate set with a bounded
// heap, without sorting the whole set.
package merger

import (
	"container/heap"
)

// TopN returns the n best items according to better, best first. n < 1
// yields an empty result.
func TopN[T any](items []T, n int, better func(a, b T) bool) []T {
	if n < 1 || len(items) == 0 {
		return []T{}
	}
	// min-heap on "better": the root is the worst item kept so far
	h := &boundedHeap[T]{better: better}
	for _, item := range items {
		if h.Len() < n {
			heap.Push(h, item)
			continue
		}
		if better(item, h.items[0]) {
			h.items[0] = item
			heap.Fix(h, 0)
		}
	}
	result := make([]T, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(T)
	}
	return result
}

type boundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int { return len(h.items) }

func (h *boundedHeap[T]) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }

func (h *boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
