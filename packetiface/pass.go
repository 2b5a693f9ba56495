package packetiface

import (
	"fmt"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// PacketPassInterface is the push-mode packet transport of spec.md §4.4:
// a provider (constructed with a handlerSend callback) accepts packets of
// at most MTU bytes pushed by a caller via Send, and reports completion
// asynchronously via Done, which may itself support being preempted by
// RequestCancel while BUSY.
type PacketPassInterface struct {
	debug debugobject.Object

	mtu int

	handlerSend   func(data []byte)
	handlerCancel func()
	hasCancel     bool
	handlerDone   func()

	state state
	buf   []byte

	jobOperation  *reactor.PendingJob
	jobCompletion *reactor.PendingJob
}

// NewPacketPassInterface constructs a provider-side interface. handlerSend
// is invoked (via a pending job, never synchronously from Send) to process
// a pushed packet; it must eventually call Done.
func NewPacketPassInterface(pg *reactor.PendingGroup, mtu int, handlerSend func(data []byte)) *PacketPassInterface {
	if handlerSend == nil {
		panic("packetiface: PacketPassInterface: handlerSend must not be nil")
	}
	if mtu < 0 {
		panic("packetiface: PacketPassInterface: negative MTU")
	}
	i := &PacketPassInterface{
		mtu:         mtu,
		handlerSend: handlerSend,
	}
	i.debug.Init("PacketPassInterface")
	i.jobOperation = pg.NewJob(func() {
		i.state = stateBusy
		i.handlerSend(i.buf)
	})
	i.jobCompletion = pg.NewJob(func() {
		i.state = stateNone
		i.buf = nil
		if i.handlerDone != nil {
			i.handlerDone()
		}
	})
	return i
}

// EnableCancel marks the interface as supporting RequestCancel, with
// handlerCancel invoked synchronously from RequestCancel (spec.md §4.4:
// "the provider must eventually complete with Done regardless").
func (i *PacketPassInterface) EnableCancel(handlerCancel func()) {
	i.debug.Access()
	if handlerCancel == nil {
		panic("packetiface: PacketPassInterface: EnableCancel with nil handler")
	}
	i.handlerCancel = handlerCancel
	i.hasCancel = true
}

// HasCancel reports whether RequestCancel is supported.
func (i *PacketPassInterface) HasCancel() bool {
	i.debug.Access()
	return i.hasCancel
}

// MTU returns the maximum packet size this interface accepts.
func (i *PacketPassInterface) MTU() int {
	i.debug.Access()
	return i.mtu
}

// SetHandlerDone attaches the caller's completion callback, invoked (via a
// pending job) after every Send's eventual Done.
func (i *PacketPassInterface) SetHandlerDone(handlerDone func()) {
	i.debug.Access()
	i.handlerDone = handlerDone
}

// Send pushes data into the interface. data must be retained read-only by
// the caller until the corresponding Done fires; len(data) must not exceed
// MTU. Send panics if an operation is already outstanding (spec.md §3:
// at most one outstanding operation at a time).
func (i *PacketPassInterface) Send(data []byte) {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("packetiface: PacketPassInterface.Send called in state %v, want none", i.state))
	}
	if len(data) > i.mtu {
		panic(fmt.Sprintf("packetiface: PacketPassInterface.Send: %d bytes exceeds MTU %d", len(data), i.mtu))
	}
	i.buf = data
	i.state = stateOperationPending
	i.jobOperation.Set()
}

// RequestCancel asks the provider to abandon the outstanding Send as soon
// as possible; the provider must still eventually call Done. Panics if
// cancel is unsupported or no operation is outstanding.
func (i *PacketPassInterface) RequestCancel() {
	i.debug.Access()
	if !i.hasCancel {
		panic("packetiface: PacketPassInterface.RequestCancel: cancel not supported")
	}
	if i.state != stateBusy && i.state != stateOperationPending {
		panic(fmt.Sprintf("packetiface: PacketPassInterface.RequestCancel called in state %v", i.state))
	}
	i.handlerCancel()
}

// Done is called by the provider (from within handlerSend, synchronously
// or later) to report completion of the outstanding Send.
func (i *PacketPassInterface) Done() {
	i.debug.Access()
	if i.state != stateBusy {
		panic(fmt.Sprintf("packetiface: PacketPassInterface.Done called in state %v, want busy", i.state))
	}
	i.state = stateDonePending
	i.jobCompletion.Set()
}

// Free releases the interface. Per spec.md §4.3, no operation may be
// outstanding at Free time.
func (i *PacketPassInterface) Free() {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("packetiface: PacketPassInterface.Free called while an operation is outstanding (state %v)", i.state))
	}
	i.jobOperation.Free()
	i.jobCompletion.Free()
	i.debug.Free()
}
