// Package fairqueue implements PacketPassFairQueue (spec.md §4.11): a
// single downstream pass output shared by any number of independently
// driven flow handles, scheduled by least-cumulative-bytes-sent so that
// continuously backlogged flows converge to an even split.
package fairqueue

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/flowstats"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// FairQueue schedules flows onto a single downstream PacketPassInterface.
type FairQueue struct {
	debug debugobject.Object

	pg     *reactor.PendingGroup
	output *packetiface.PacketPassInterface

	flows    map[*Flow]struct{}
	busyFlow *Flow
	nextSeq  uint64

	stats *flowstats.Monitor
}

// Option configures optional FairQueue behavior at construction.
type Option func(*FairQueue)

// WithStats attaches a flowstats.Monitor that records each flow's sends,
// keyed by the flow's own *Flow handle. Diagnostics only: never consulted
// by the scheduler.
func WithStats(m *flowstats.Monitor) Option {
	return func(q *FairQueue) { q.stats = m }
}

// New creates a fair queue driving output. The queue does not own output;
// the caller frees it separately, after every flow has been freed.
func New(pg *reactor.PendingGroup, output *packetiface.PacketPassInterface, opts ...Option) *FairQueue {
	q := &FairQueue{pg: pg, output: output, flows: make(map[*Flow]struct{})}
	for _, opt := range opts {
		opt(q)
	}
	q.debug.Init("FairQueue")
	q.output.SetHandlerDone(q.onOutputDone)
	return q
}

// Flow is one producer-facing pass input multiplexed onto the queue's
// shared output. The caller of NewFlow is free to call Input.SetHandlerDone
// with its own completion callback; the queue never touches that slot.
type Flow struct {
	debug debugobject.Object

	q     *FairQueue
	Input *packetiface.PacketPassInterface

	releaseJob *reactor.PendingJob

	deficit     int64
	seq         uint64
	pending     []byte
	waiting     bool
	busy        bool
	prepareFree bool
}

// NewFlow registers a new flow of the given MTU (which must not exceed the
// queue's output MTU).
func (q *FairQueue) NewFlow(mtu int) *Flow {
	if mtu > q.output.MTU() {
		panic("fairqueue: flow MTU exceeds output MTU")
	}
	f := &Flow{q: q}
	f.debug.Init("FairQueueFlow")
	f.Input = packetiface.NewPacketPassInterface(q.pg, mtu, f.onSend)
	f.releaseJob = q.pg.NewJob(f.performRelease)
	if q.output.HasCancel() {
		f.Input.EnableCancel(f.onCancel)
	}
	q.flows[f] = struct{}{}
	return f
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

// onCancel is only reachable when the queue's output supports cancel; it
// requests cancellation of the in-flight downstream send if this flow is
// the one currently occupying it. A flow waiting but not yet scheduled
// downstream has nothing to cancel there, so it is completed directly.
func (f *Flow) onCancel() {
	if f.busy {
		f.q.output.RequestCancel()
		return
	}
	f.waiting = false
	f.pending = nil
	f.Input.Done()
}

// maybePreempt requests cancellation of the currently busy flow's downstream
// send if the newly-arrived flow has strictly fewer cumulative bytes sent
// and the downstream supports cancellation. The busy flow is not resent: its
// Send is considered done for whatever prefix the downstream accepted before
// the cancel landed, exactly as onOutputDone treats any other completion.
func (q *FairQueue) maybePreempt(arriving *Flow) {
	b := q.busyFlow
	if b == nil || b == arriving || !q.output.HasCancel() {
		return
	}
	if arriving.deficit < b.deficit {
		q.output.RequestCancel()
	}
}

func (q *FairQueue) pickNext() *Flow {
	var best *Flow
	for f := range q.flows {
		if !f.waiting || f.busy {
			continue
		}
		if best == nil || f.deficit < best.deficit || (f.deficit == best.deficit && f.seq < best.seq) {
			best = f
		}
	}
	return best
}

func (q *FairQueue) scheduleIfIdle() {
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

// onOutputDone fires once per downstream Send completion, whether it ran
// to completion or was cut short by RequestCancel; the fair queue does not
// distinguish the two, since the busy flow's own Done is owed either way.
func (q *FairQueue) onOutputDone() {
	f := q.busyFlow
	q.busyFlow = nil
	f.busy = false
	f.deficit += int64(len(f.pending))
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

// outstanding reports whether the flow has a Send in flight, whether or
// not the queue has yet scheduled it onto the downstream output.
func (f *Flow) outstanding() bool {
	return f.waiting || f.busy
}

// RequestFree marks the flow for teardown. An idle flow is freed at once.
// A flow merely waiting to be scheduled is completed immediately (its
// queued data is dropped, since it was never handed to the downstream).
// A flow currently occupying the downstream output is freed once that
// send's Done arrives, with no cancellation requested — "the caller must
// wait" per spec.md §4.11.
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
// downstream output and that output does not support cancellation. Use
// RequestFree to tolerate that case by deferring instead. An idle flow is
// released at once; a waiting flow's queued data is dropped and the flow is
// released from a pending job; a busy flow has its downstream send
// cancelled and is released once that send completes.
func (f *Flow) Free() {
	if f.busy && !f.q.output.HasCancel() {
		panic("fairqueue: Free of busy flow without cancel support; use RequestFree")
	}
	if f.busy {
		f.prepareFree = true
		f.q.output.RequestCancel()
		return
	}
	f.RequestFree()
}

// Free tears the queue down. Every flow must already be freed.
func (q *FairQueue) Free() {
	q.debug.Access()
	q.debug.Free()
}
