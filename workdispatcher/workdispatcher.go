// Package workdispatcher implements BThreadWorkDispatcher (spec.md
// §4.16): the one boundary in this framework where work may run off the
// reactor thread. Work items are batched onto worker goroutines via
// microbatch.Batcher, and every completion crosses back to the reactor
// thread through Reactor.SubmitFromOtherThread before handler_done runs.
package workdispatcher

import (
	"context"
	"sync"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/go-microbatch"
)

// Dispatcher either runs submitted work on worker goroutines (via an
// underlying microbatch.Batcher) or, with no batching configured, still
// dispatches through the same worker pool — the framework never executes
// work_func on the reactor thread itself, per spec.md §4.16's preemption
// boundary.
type Dispatcher struct {
	r       *reactor.Reactor
	batcher *microbatch.Batcher[*WorkItem]
}

// New creates a dispatcher bound to r, batching work items per config (nil
// for microbatch's defaults).
func New(r *reactor.Reactor, config *microbatch.BatcherConfig) *Dispatcher {
	d := &Dispatcher{r: r}
	d.batcher = microbatch.NewBatcher[*WorkItem](config, d.process)
	return d
}

func (d *Dispatcher) process(_ context.Context, items []*WorkItem) error {
	for _, it := range items {
		it.run()
	}
	return nil
}

// Close cancels any in-flight work and waits for worker goroutines to
// exit. Unsafe to call from within a work_func or handler_done.
func (d *Dispatcher) Close() error {
	return d.batcher.Close()
}

// WorkItem is one piece of work in flight through the dispatcher.
type WorkItem struct {
	d           *Dispatcher
	workFunc    func() any
	handlerDone func(any)

	mu      sync.Mutex
	running bool
	freed   bool
	runDone chan struct{}
}

// Submit schedules workFunc to run on a worker goroutine; handlerDone is
// invoked on the reactor thread with its result, unless the returned
// WorkItem is freed first. workFunc must not touch reactor-owned state —
// it may run concurrently with the reactor goroutine.
func (d *Dispatcher) Submit(workFunc func() any, handlerDone func(any)) *WorkItem {
	if workFunc == nil || handlerDone == nil {
		panic("workdispatcher: Submit: workFunc and handlerDone must not be nil")
	}
	it := &WorkItem{d: d, workFunc: workFunc, handlerDone: handlerDone, runDone: make(chan struct{})}
	// Submit blocks only on microbatch's internal ping/pong handoff, not on
	// the work itself, so calling it directly from the reactor thread is
	// safe.
	_, _ = d.batcher.Submit(context.Background(), it)
	return it
}

func (it *WorkItem) run() {
	it.mu.Lock()
	if it.freed {
		it.mu.Unlock()
		return
	}
	it.running = true
	it.mu.Unlock()

	result := it.workFunc()

	it.mu.Lock()
	it.running = false
	freed := it.freed
	it.mu.Unlock()
	close(it.runDone)

	if freed {
		return
	}
	it.d.r.SubmitFromOtherThread(func() {
		it.mu.Lock()
		freed := it.freed
		it.mu.Unlock()
		if !freed {
			it.handlerDone(result)
		}
	})
}

// Free prevents handlerDone from being delivered. If workFunc is currently
// executing, Free blocks until it returns (spec.md §4.16: "Free of a work
// item may block briefly if the worker is currently executing"). Safe to
// call from the reactor thread; must not be called from within workFunc
// itself (it would deadlock waiting on its own completion).
func (it *WorkItem) Free() {
	it.mu.Lock()
	wasRunning := it.running
	it.freed = true
	it.mu.Unlock()
	if wasRunning {
		<-it.runDone
	}
}
