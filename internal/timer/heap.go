package timer

import (
	"container/heap"
	"time"
)

// armedTimer is one pending fire in the gateway heap.
type armedTimer struct {
	// ID is the namespaced event identifier.
	ID int64
	// At is the trigger instant.
	At time.Time
}

// timerHeap implements container/heap.Interface for armedTimer,
// sorted by At (earliest first, min-heap).
type timerHeap []armedTimer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].At.Before(h[j].At) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(armedTimer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// push adds a pending timer, maintaining the heap invariant.
func (h *timerHeap) push(t armedTimer) {
	heap.Push(h, t)
}

// pop removes and returns the earliest pending timer.
// Panics if the heap is empty.
func (h *timerHeap) pop() armedTimer {
	return heap.Pop(h).(armedTimer)
}

// removeByID removes the pending timer with the given identifier.
// Returns true if one was found and removed.
func (h *timerHeap) removeByID(id int64) bool {
	for i, t := range *h {
		if t.ID == id {
			heap.Remove(h, i)
			return true
		}
	}

	return false
}
