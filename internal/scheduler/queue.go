// Package scheduler owns the job lifecycle: the priority FIFO queue, the
// worker pool, cron triggering, cancellation and retry.
package scheduler

import (
	"container/heap"
	"sync"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

type queueItem struct {
	jobID    string
	priority int
	// seq breaks priority ties so dequeue order stays FIFO within one
	// priority level.
	seq uint64
}

type itemHeap []queueItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(queueItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// jobQueue is a bounded priority FIFO. Higher priority dequeues first;
// equal priorities dequeue in submission order.
type jobQueue struct {
	mu       sync.Mutex
	items    itemHeap
	capacity int
	seq      uint64
}

func newJobQueue(capacity int) *jobQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &jobQueue{capacity: capacity}
}

func (q *jobQueue) Push(jobID string, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return domain.Errf(domain.ErrKindInfrastructure, "job queue is full (%d pending)", q.capacity)
	}
	q.seq++
	heap.Push(&q.items, queueItem{jobID: jobID, priority: priority, seq: q.seq})
	return nil
}

func (q *jobQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	item := heap.Pop(&q.items).(queueItem)
	return item.jobID, true
}

func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
