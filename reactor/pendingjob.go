package reactor

import "container/list"

// PendingGroup is a FIFO of zero-delay deferred callbacks, drained by the
// reactor before it reconsiders I/O (spec.md §3, §4.2). Every interface
// operation and completion call in this module is routed through a
// PendingJob rather than invoked directly, which is what turns what would
// otherwise be deep recursive call stacks through a pipeline into the
// reactor's flat dispatch loop (spec.md §4.2 rationale).
type PendingGroup struct {
	queue list.List // of *PendingJob
}

// NewPendingGroup creates an empty group. A Reactor owns exactly one.
func NewPendingGroup() *PendingGroup {
	g := &PendingGroup{}
	g.queue.Init()
	return g
}

// Empty reports whether any job is currently set.
func (g *PendingGroup) Empty() bool {
	return g.queue.Len() == 0
}

// Len returns the number of currently-set jobs.
func (g *PendingGroup) Len() int {
	return g.queue.Len()
}

// dispatchOne pops the head job, marks it idle, then invokes its handler.
// Returns false if the group was empty. Per spec.md §4.1 step 2, the
// caller must re-check Empty (or re-enter the reactor's top-of-loop) after
// every single dispatch, never draining the whole queue in one sweep —
// a handler may itself set further jobs.
func (g *PendingGroup) dispatchOne() bool {
	front := g.queue.Front()
	if front == nil {
		return false
	}
	j := front.Value.(*PendingJob)
	g.queue.Remove(front)
	j.elem = nil
	handler := j.handler
	handler()
	return true
}

// PendingJob is a deferred callback belonging to exactly one PendingGroup.
// A job is always in one of two states: idle (not queued) or set (queued
// at most once, per spec.md §3's PendingGroup/PendingJob invariant).
type PendingJob struct {
	group   *PendingGroup
	handler func()
	elem    *list.Element // non-nil iff set
}

// NewJob creates a new, initially-idle job whose handler will be invoked
// (with no arguments) when the job is dispatched.
func (g *PendingGroup) NewJob(handler func()) *PendingJob {
	if handler == nil {
		panic("reactor: PendingJob handler must not be nil")
	}
	return &PendingJob{group: g, handler: handler}
}

// IsSet reports whether the job is currently queued.
func (j *PendingJob) IsSet() bool {
	return j.elem != nil
}

// Set appends the job to the tail of its group's queue if it is idle. If
// already set, Set is a no-op — spec.md §4.2 permits implementations to
// either leave position unchanged or move to tail; this implementation
// leaves position unchanged, which is simpler and sufficient because
// pipelines never depend on relative order among jobs from different
// chains that happen to be co-set.
func (j *PendingJob) Set() {
	if j.elem != nil {
		return
	}
	j.elem = j.group.queue.PushBack(j)
}

// Unset removes the job from the queue if set; a no-op if already idle.
func (j *PendingJob) Unset() {
	if j.elem == nil {
		return
	}
	j.group.queue.Remove(j.elem)
	j.elem = nil
}

// Free releases the job. Per spec.md §4.2, a job must be idle when freed;
// freeing a set job is a contract violation (the owning node failed to
// unset it before tearing down), so Free panics in that case rather than
// silently unsetting it.
func (j *PendingJob) Free() {
	if j.elem != nil {
		panic("reactor: PendingJob.Free called while job is still set")
	}
}
