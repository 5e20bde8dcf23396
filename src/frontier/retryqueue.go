package frontier

import "github.com/corrinfell/weave/src/task"

// retryHeap is a container/heap min-heap of tasks ordered by
// ScheduledAt, implementing the frontier's retry sub-queue.
type retryHeap []task.Task

func (h retryHeap) Len() int            { return len(h) }
func (h retryHeap) Less(i, j int) bool  { return h[i].ScheduledAt.Before(h[j].ScheduledAt) }
func (h retryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }

func (h *retryHeap) Push(x any) {
	*h = append(*h, x.(task.Task))
}

func (h *retryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
