package executor

import (
	"container/heap"

	"github.com/happy2099/zap-mono/internal/domain"
)

// queuedItem pairs a trade with its arrival sequence so equal priorities
// resolve first-in-first-out.
type queuedItem struct {
	trade *domain.QueuedTrade
	seq   uint64
}

type tradeHeap []*queuedItem

func (h tradeHeap) Len() int { return len(h) }

func (h tradeHeap) Less(i, j int) bool {
	if h[i].trade.Priority != h[j].trade.Priority {
		return h[i].trade.Priority > h[j].trade.Priority
	}
	return h[i].seq < h[j].seq
}

func (h tradeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *tradeHeap) Push(x any) {
	*h = append(*h, x.(*queuedItem))
}

func (h *tradeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*tradeHeap)(nil)

func heapPush(h *tradeHeap, item *queuedItem) {
	heap.Push(h, item)
}

func heapPop(h *tradeHeap) *queuedItem {
	return heap.Pop(h).(*queuedItem)
}
