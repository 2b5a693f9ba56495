package reactor

import (
	"container/heap"
	"time"
)

// Timer owns a deadline, a handler, and a membership flag: either armed
// (in the reactor's timer set) or idle (spec.md §3). Setting an armed
// timer re-deadlines it rather than requiring an Unset/Set pair.
type Timer struct {
	r        *Reactor
	handler  func()
	deadline time.Time
	seq      uint64 // registration-order tie-break for equal deadlines
	index    int    // heap index, -1 if not armed
}

// NewTimer creates an idle timer whose handler runs (with no arguments)
// when it fires. The timer is not armed until Set or SetDeadline is
// called.
func (r *Reactor) NewTimer(handler func()) *Timer {
	if handler == nil {
		panic("reactor: Timer handler must not be nil")
	}
	return &Timer{r: r, handler: handler, index: -1}
}

// Armed reports whether the timer is currently in the reactor's timer set.
func (t *Timer) Armed() bool { return t.index >= 0 }

// Set arms (or re-arms) the timer to fire after d elapses from the
// reactor's current notion of "now". A non-positive d fires on the very
// next Run iteration, ahead of any I/O wait (spec.md §4.1 step 4: "0 if
// none in the past").
func (t *Timer) Set(d time.Duration) {
	t.SetDeadline(t.r.Now().Add(d))
}

// SetDeadline arms (or re-arms) the timer to the given absolute deadline.
func (t *Timer) SetDeadline(at time.Time) {
	t.deadline = at
	if t.index >= 0 {
		heap.Fix(&t.r.timers, t.index)
		return
	}
	t.seq = t.r.nextTimerSeq
	t.r.nextTimerSeq++
	heap.Push(&t.r.timers, t)
}

// Unset disarms the timer; a no-op if already idle.
func (t *Timer) Unset() {
	if t.index < 0 {
		return
	}
	heap.Remove(&t.r.timers, t.index)
}

// timerHeap is a min-heap of *Timer ordered by (deadline, seq), giving
// deterministic tie-break order for timers sharing a deadline (spec.md
// §4.1: "two timers with equal deadlines fire in registration order").
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
