// Package eventlock implements BEventLock (spec.md §4.15): a FIFO
// mutual-exclusion primitive expressed purely in reactor jobs, with no
// threading involved. Waiters queue in arrival order; the lock's pending
// job admits the head of the queue once it is free.
package eventlock

import (
	"container/list"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// Lock serializes access among any number of Waiters in strict FIFO order.
type Lock struct {
	debug debugobject.Object

	pg      *reactor.PendingGroup
	waiters list.List // of *Waiter
	holder  *Waiter
}

// New creates an unheld lock.
func New(pg *reactor.PendingGroup) *Lock {
	l := &Lock{pg: pg}
	l.debug.Init("EventLock")
	l.waiters.Init()
	return l
}

// Waiter is one pending or held acquisition of a Lock.
type Waiter struct {
	debug debugobject.Object

	l       *Lock
	handler func()
	job     *reactor.PendingJob
	elem    *list.Element
	queued  bool
	holding bool
}

// NewWaiter creates a waiter bound to the lock. handler runs once this
// waiter is admitted: at the head of the queue with the lock free.
func (l *Lock) NewWaiter(handler func()) *Waiter {
	if handler == nil {
		panic("eventlock: NewWaiter: handler must not be nil")
	}
	w := &Waiter{l: l, handler: handler}
	w.debug.Init("EventLockWaiter")
	w.job = l.pg.NewJob(w.admit)
	return w
}

// Wait enqueues the waiter at the tail of the lock's FIFO. Panics if the
// waiter is already queued or holding the lock.
func (w *Waiter) Wait() {
	w.debug.Access()
	if w.queued || w.holding {
		panic("eventlock: Wait called while already queued or holding")
	}
	w.queued = true
	w.elem = w.l.waiters.PushBack(w)
	w.l.scheduleHead()
}

// scheduleHead arms the head waiter's admission job if the lock is free
// and a waiter is queued.
func (l *Lock) scheduleHead() {
	if l.holder != nil {
		return
	}
	front := l.waiters.Front()
	if front == nil {
		return
	}
	front.Value.(*Waiter).job.Set()
}

func (w *Waiter) admit() {
	w.queued = false
	w.l.waiters.Remove(w.elem)
	w.elem = nil
	w.holding = true
	w.l.holder = w
	w.handler()
}

// Release relinquishes the lock (if held) or withdraws from the queue (if
// merely waiting), then admits the next waiter.
func (w *Waiter) Release() {
	w.debug.Access()
	if !w.queued && !w.holding {
		return
	}
	if w.l.holder == w {
		w.l.holder = nil
	}
	if w.queued {
		w.l.waiters.Remove(w.elem)
		w.elem = nil
		w.queued = false
	}
	w.holding = false
	w.job.Unset()
	w.l.scheduleHead()
}

// Free releases the waiter (per Release, if necessary) and destroys it.
func (w *Waiter) Free() {
	w.debug.Access()
	w.Release()
	w.job.Free()
	w.debug.Free()
}

// Free destroys the lock. Every waiter must already be freed.
func (l *Lock) Free() {
	l.debug.Access()
	l.debug.Free()
}
