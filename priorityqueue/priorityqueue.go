// Package priorityqueue implements PacketPassPriorityQueue (spec.md
// §4.12): the same shape as fairqueue, but flows are scheduled by strict
// integer priority (smaller wins) with FIFO tie-break among equal
// priorities, rather than by cumulative bytes sent.
package priorityqueue

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/flowstats"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// PriorityQueue schedules flows onto a single downstream
// PacketPassInterface by strict priority.
type PriorityQueue struct {
	debug debugobject.Object

	pg     *reactor.PendingGroup
	output *packetiface.PacketPassInterface

	flows    map[*Flow]struct{}
	busyFlow *Flow
	nextSeq  uint64

	stats *flowstats.Monitor
}

// Option configures optional PriorityQueue behavior at construction.
type Option func(*PriorityQueue)

// WithStats attaches a flowstats.Monitor that records each flow's sends,
// keyed by the flow's own *Flow handle. Diagnostics only: never consulted
// by the scheduler.
func WithStats(m *flowstats.Monitor) Option {
	return func(q *PriorityQueue) { q.stats = m }
}

// New creates a priority queue driving output. The queue does not own
// output; the caller frees it separately, after every flow has been freed.
func New(pg *reactor.PendingGroup, output *packetiface.PacketPassInterface, opts ...Option) *PriorityQueue {
	q := &PriorityQueue{pg: pg, output: output, flows: make(map[*Flow]struct{})}
	for _, opt := range opts {
		opt(q)
	}
	q.debug.Init("PriorityQueue")
	q.output.SetHandlerDone(q.onOutputDone)
	return q
}

// Flow is one producer-facing pass input multiplexed onto the queue's
// shared output at a fixed priority (smaller value wins).
type Flow struct {
	debug debugobject.Object

	q        *PriorityQueue
	Input    *packetiface.PacketPassInterface
	priority int

	releaseJob *reactor.PendingJob

	seq         uint64
	pending     []byte
	waiting     bool
	busy        bool
	prepareFree bool
}

// NewFlow registers a new flow of the given MTU and priority (smaller
// priority values are scheduled first).
func (q *PriorityQueue) NewFlow(mtu int, priority int) *Flow {
	if mtu > q.output.MTU() {
		panic("priorityqueue: flow MTU exceeds output MTU")
	}
	f := &Flow{q: q, priority: priority}
	f.debug.Init("PriorityQueueFlow")
	f.Input = packetiface.NewPacketPassInterface(q.pg, mtu, f.onSend)
	f.releaseJob = q.pg.NewJob(f.performRelease)
	if q.output.HasCancel() {
		f.Input.EnableCancel(f.onCancel)
	}
	q.flows[f] = struct{}{}
	return f
}

// Priority returns the flow's fixed scheduling priority.
func (f *Flow) Priority() int {
	return f.priority
}

func (f *Flow) onSend(data []byte) {
	f.pending = data
	f.waiting = true
	f.seq = f.q.nextSeq
	f.q.nextSeq++
	if f.q.stats != nil {
		f.q.stats.Record(f, len(data))
	}
	f.q.maybePreempt(f)
	f.q.scheduleIfIdle()
}

func (f *Flow) onCancel() {
	if f.busy {
		f.q.output.RequestCancel()
		return
	}
	f.waiting = false
	f.pending = nil
	f.Input.Done()
}

// maybePreempt requests cancellation of the currently busy flow's
// downstream send if the newly-arrived flow strictly outranks it (lower
// priority value) and the downstream supports cancellation.
func (q *PriorityQueue) maybePreempt(arriving *Flow) {
	b := q.busyFlow
	if b == nil || b == arriving || !q.output.HasCancel() {
		return
	}
	if arriving.priority < b.priority {
		q.output.RequestCancel()
	}
}

func (q *PriorityQueue) pickNext() *Flow {
	var best *Flow
	for f := range q.flows {
		if !f.waiting || f.busy {
			continue
		}
		if best == nil || f.priority < best.priority || (f.priority == best.priority && f.seq < best.seq) {
			best = f
		}
	}
	return best
}

func (q *PriorityQueue) scheduleIfIdle() {
	if q.busyFlow != nil {
		return
	}
	f := q.pickNext()
	if f == nil {
		return
	}
	f.waiting = false
	f.busy = true
	q.busyFlow = f
	q.output.Send(f.pending)
}

func (q *PriorityQueue) onOutputDone() {
	f := q.busyFlow
	q.busyFlow = nil
	f.busy = false
	f.pending = nil
	f.Input.Done()
	if f.prepareFree {
		f.releaseJob.Set()
	}
	q.scheduleIfIdle()
}

func (f *Flow) performRelease() {
	f.Input.Free()
	delete(f.q.flows, f)
	f.releaseJob.Free()
	f.debug.Free()
}

func (f *Flow) outstanding() bool {
	return f.waiting || f.busy
}

// RequestFree tears the flow down, dropping any merely-queued data
// immediately and deferring only while the flow occupies the downstream.
func (f *Flow) RequestFree() {
	if !f.outstanding() {
		f.performRelease()
		return
	}
	f.prepareFree = true
	if f.waiting {
		f.waiting = false
		f.pending = nil
		f.Input.Done()
		f.releaseJob.Set()
	}
}

// Free tears the flow down, panicking if it currently occupies the
// downstream output and that output does not support cancellation. An idle
// flow is released at once; a waiting flow's queued data is dropped and the
// flow is released from a pending job; a busy flow has its downstream send
// cancelled and is released once that send completes.
func (f *Flow) Free() {
	if f.busy && !f.q.output.HasCancel() {
		panic("priorityqueue: Free of busy flow without cancel support; use RequestFree")
	}
	if f.busy {
		f.prepareFree = true
		f.q.output.RequestCancel()
		return
	}
	f.RequestFree()
}

// Free tears the queue down. Every flow must already be freed.
func (q *PriorityQueue) Free() {
	q.debug.Access()
	q.debug.Free()
}
