package queue

import "time"

// delayEntry is one armed "flip to pending" event: when at is reached,
// the job identified by key becomes eligible again. Entries are
// invalidated lazily: if the job is gone or no longer delayed when the
// entry pops, it is dropped.
type delayEntry struct {
	at  time.Time
	key string
	seq uint64
}

// delayHeap is a time-ordered min-heap of delay entries, polled once
// per tick. This scales to many delayed jobs without one timer per job.
// It implements container/heap.Interface.
type delayHeap []delayEntry

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].seq < h[j].seq
}

func (h delayHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayHeap) Push(x any) {
	*h = append(*h, x.(delayEntry))
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
