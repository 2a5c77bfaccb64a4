// Package merger keeps the best scored documents of a query.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/ranker"
)

// Collector retains the limit best documents offered to it. Documents rank by
// descending score, then ascending document id.
type Collector struct {
	limit   int
	offered int
	heap    worstFirst
}

func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = 10
	}
	return &Collector{limit: limit, heap: make(worstFirst, 0, limit)}
}

// Offer considers doc for the result set.
func (c *Collector) Offer(doc ranker.ScoredDoc) {
	c.offered++
	if len(c.heap) < c.limit {
		heap.Push(&c.heap, doc)
		return
	}
	if !better(doc, c.heap[0]) {
		return
	}
	c.heap[0] = doc
	heap.Fix(&c.heap, 0)
}

// Offered is the number of documents seen, retained or not.
func (c *Collector) Offered() int {
	return c.offered
}

// Results drains the collector, best document first.
func (c *Collector) Results() []ranker.ScoredDoc {
	out := make([]ranker.ScoredDoc, len(c.heap))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&c.heap).(ranker.ScoredDoc)
	}
	return out
}

func better(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// worstFirst is a heap with the weakest retained document at the root.
type worstFirst []ranker.ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(ranker.ScoredDoc)) }

func (h *worstFirst) Pop() any {
	old := *h
	doc := old[len(old)-1]
	*h = old[:len(old)-1]
	return doc
}
