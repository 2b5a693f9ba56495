// Package reactor implements the event reactor at the core of the flow
// framework (spec.md §3, §4.1): a single-threaded, cooperative event loop
// owning a timer set, a set of file-descriptor watchers, and a pending-job
// queue that is drained completely before any I/O is reconsidered.
//
// The design is grounded on the teacher's event loop
// (github.com/joeycumines/go-eventloop's Loop type — state machine, timer
// min-heap, epoll poller) but deliberately sheds its lock-free multi-
// producer machinery: spec.md's Non-goals forbid multithreading within one
// reactor, so there is exactly one place (Reactor.SubmitFromOtherThread)
// where a foreign goroutine may cross into reactor state, and it is a plain
// mutex-protected queue plus an eventfd wake, not the teacher's CAS-based
// ChunkedIngress/fast-path machinery (which exists purely to make *every*
// Submit call thread-safe, a requirement this module does not have).
package reactor

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/flowlog"
)

// poller is the platform I/O-readiness primitive. epollPoller (Linux) is
// the only implementation; see poller_other.go for the build-tag stub.
type poller interface {
	close() error
	add(fd int, events FDEvents) error
	modify(fd int, events FDEvents) error
	remove(fd int) error
	wait(timeout time.Duration) ([]ready, error)
}

// Reactor is the process-scoped (usually one per thread) owner of a
// monotone clock origin, a timer set ordered by deadline, a mapping from
// file-descriptor identities to watchers, and a PendingGroup (spec.md §3).
type Reactor struct {
	debug debugobject.Object

	pending *PendingGroup
	timers  timerHeap
	fds     map[int]*FDWatcher
	poller  poller

	nextTimerSeq uint64

	state State

	quitRequested bool
	quitCode      int

	running bool
	dispatchingGoroutine bool

	clockOrigin time.Time
	monotonic   bool

	// Cross-thread submission: the sole exception to single-threadedness,
	// used only by workdispatcher and signalbridge (spec.md §5, §4.16-4.17).
	foreignMu   sync.Mutex
	foreignJobs []func()
	wakeFD      int
}

// New constructs a Reactor. The monotonic clock is required by spec.md §6;
// if the runtime cannot provide one (it always can, on every Go-supported
// OS) this falls back to wall-clock and logs the fact, per spec.
func New() (*Reactor, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	wakeFD, werr := createWakeFD()
	if werr != nil {
		_ = p.close()
		return nil, werr
	}
	r := &Reactor{
		pending:     NewPendingGroup(),
		fds:         make(map[int]*FDWatcher),
		poller:      p,
		clockOrigin: time.Now(),
		monotonic:   true,
		wakeFD:      wakeFD,
	}
	r.debug.Init("Reactor")
	if _, werr := r.RegisterFD(wakeFD, EventRead, func(FDEvents) {
		wakeFDDrain(wakeFD)
	}); werr != nil {
		_ = p.close()
		return nil, werr
	}
	return r, nil
}

// Now returns the reactor's monotonic clock. Timers are scheduled relative
// to this, never wall-clock, so they are immune to clock adjustments.
func (r *Reactor) Now() time.Time {
	if r.monotonic {
		return time.Now()
	}
	flowlog.Warn(flowlog.CategoryReactor, "Reactor", "monotonic clock unavailable, using wall clock")
	return time.Now()
}

// Pending returns the reactor's PendingGroup, used by flow nodes to defer
// operation/completion calls (spec.md §3, §4.2).
func (r *Reactor) Pending() *PendingGroup { return r.pending }

// State returns the reactor's current run state.
func (r *Reactor) State() State { return r.state }

// Quit requests that Run return code once the current dispatch (if any)
// completes and control returns to the top of the loop.
func (r *Reactor) Quit(code int) {
	r.quitRequested = true
	r.quitCode = code
}

// Close releases the poller and wake descriptor. Call only after Run has
// returned and every FDWatcher/Timer/PendingJob owned by flows attached to
// this reactor has been freed.
func (r *Reactor) Close() error {
	r.debug.Access()
	r.debug.Free()
	return r.poller.close()
}

// SubmitFromOtherThread enqueues job to run on the reactor goroutine at the
// next dispatch opportunity, waking the reactor if it is blocked. This is
// the sole thread-safe entry point (spec.md §4.16, §5) — used only by
// workdispatcher's handler_done delivery and signalbridge's signal
// callbacks, both of which run on a goroutine other than the reactor's.
func (r *Reactor) SubmitFromOtherThread(job func()) {
	r.foreignMu.Lock()
	r.foreignJobs = append(r.foreignJobs, job)
	r.foreignMu.Unlock()
	wakeFDSignal(r.wakeFD)
}

func (r *Reactor) drainForeignJobs() {
	r.foreignMu.Lock()
	if len(r.foreignJobs) == 0 {
		r.foreignMu.Unlock()
		return
	}
	jobs := r.foreignJobs
	r.foreignJobs = nil
	r.foreignMu.Unlock()
	for _, j := range jobs {
		j()
	}
}

// Run executes the reactor's event loop precisely per spec.md §4.1:
//
//  1. If quit has been requested, return the quit code.
//  2. While the pending group is non-empty, dispatch exactly one pending
//     job, then restart at (1).
//  3. Expire all timers whose deadline <= now, dispatching each handler in
//     deadline order; after each handler, restart at (1).
//  4. Compute the timeout to the earliest remaining timer deadline.
//  5. Block on the readiness primitive with that timeout; for each ready
//     watcher, dispatch its handler once; between watchers restart at (1).
func (r *Reactor) Run(ctx context.Context) int {
	if r.dispatchingGoroutine {
		panic(ErrReentrantRun)
	}
	if r.running {
		panic(ErrAlreadyRunning)
	}
	r.running = true
	r.dispatchingGoroutine = true
	defer func() {
		r.running = false
		r.dispatchingGoroutine = false
	}()

	for {
		r.drainForeignJobs()

		// Step 1.
		if r.quitRequested {
			return r.quitCode
		}

		// Step 2.
		if !r.pending.Empty() {
			r.state = StateDispatching
			r.pending.dispatchOne()
			r.state = StateIdle
			continue
		}

		// Step 3.
		now := r.Now()
		if r.expireOneTimer(now) {
			continue
		}

		if ctx != nil && ctx.Err() != nil {
			return r.quitCode
		}

		// Step 4.
		timeout := r.nextTimeout(now)

		// Step 5.
		r.state = StateBlocked
		events, err := r.poller.wait(timeout)
		r.state = StateIdle
		if err != nil {
			flowlog.Err(flowlog.CategoryReactor, "Reactor", err, "poll failed")
			continue
		}
		for _, ev := range events {
			w, ok := r.fds[ev.fd]
			if !ok {
				continue
			}
			r.state = StateDispatching
			w.handler(ev.events)
			r.state = StateIdle
			r.drainForeignJobs()
			if !r.pending.Empty() || r.quitRequested {
				break
			}
		}
	}
}

// expireOneTimer dispatches at most one already-expired timer (the
// earliest deadline), returning true if it did. Callers loop on this so
// that step (1)/(2) are re-checked between every timer handler, per
// spec.md §4.1.
func (r *Reactor) expireOneTimer(now time.Time) bool {
	if len(r.timers) == 0 {
		return false
	}
	t := r.timers[0]
	if t.deadline.After(now) {
		return false
	}
	heap.Pop(&r.timers)
	r.state = StateDispatching
	t.handler()
	r.state = StateIdle
	return true
}

// nextTimeout computes the timeout to the earliest remaining timer
// deadline: 0 if none in the past (shouldn't happen, expireOneTimer
// already ran), -1 (block indefinitely) if no timers are armed.
func (r *Reactor) nextTimeout(now time.Time) time.Duration {
	if len(r.timers) == 0 {
		return -1
	}
	d := r.timers[0].deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
