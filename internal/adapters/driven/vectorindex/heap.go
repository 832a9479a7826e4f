package vectorindex

import "github.com/custodia-labs/reportqa/internal/core/domain"

// result is a query candidate.
type result struct {
	entry    *entry
	origin   domain.ChunkOrigin
	distance float32
}

// better reports whether r ranks ahead of other.
func (r result) better(other result) bool {
	if r.distance != other.distance {
		return r.distance < other.distance
	}
	return r.entry.seq < other.entry.seq
}

// resultHeap keeps the worst of the current top k at the root.
type resultHeap []result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[j].better(h[i]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
