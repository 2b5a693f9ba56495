package streamiface

import (
	"fmt"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// StreamPassInterface is the push-mode stream transport of spec.md §4.6: a
// provider accepts a buffer pushed by Send and reports completion via
// Done(n), where 1 <= n <= len(buf) — a short write is valid and does not
// imply an error, unlike a packet interface's all-or-nothing Done.
type StreamPassInterface struct {
	debug debugobject.Object

	handlerSend func(data []byte)
	handlerDone func(n int)

	state state
	buf   []byte
	n     int

	jobOperation  *reactor.PendingJob
	jobCompletion *reactor.PendingJob
}

// NewStreamPassInterface constructs a provider-side interface. handlerSend
// is invoked (via a pending job) to process a pushed buffer.
func NewStreamPassInterface(pg *reactor.PendingGroup, handlerSend func(data []byte)) *StreamPassInterface {
	if handlerSend == nil {
		panic("streamiface: StreamPassInterface: handlerSend must not be nil")
	}
	i := &StreamPassInterface{handlerSend: handlerSend}
	i.debug.Init("StreamPassInterface")
	i.jobOperation = pg.NewJob(func() {
		i.state = stateBusy
		i.handlerSend(i.buf)
	})
	i.jobCompletion = pg.NewJob(func() {
		i.state = stateNone
		i.buf = nil
		n := i.n
		i.n = 0
		if i.handlerDone != nil {
			i.handlerDone(n)
		}
	})
	return i
}

// SetHandlerDone attaches the caller's completion callback.
func (i *StreamPassInterface) SetHandlerDone(handlerDone func(n int)) {
	i.debug.Access()
	i.handlerDone = handlerDone
}

// Send pushes a non-empty buffer. The provider may accept fewer bytes than
// offered; the caller must re-offer the remainder as a new Send.
func (i *StreamPassInterface) Send(data []byte) {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("streamiface: StreamPassInterface.Send called in state %v, want none", i.state))
	}
	if len(data) == 0 {
		panic("streamiface: StreamPassInterface.Send: empty buffer")
	}
	i.buf = data
	i.state = stateOperationPending
	i.jobOperation.Set()
}

// Done reports that n bytes (1 <= n <= len(buf) offered to Send) were
// consumed by the provider.
func (i *StreamPassInterface) Done(n int) {
	i.debug.Access()
	if i.state != stateBusy {
		panic(fmt.Sprintf("streamiface: StreamPassInterface.Done called in state %v, want busy", i.state))
	}
	if n < 1 || n > len(i.buf) {
		panic(fmt.Sprintf("streamiface: StreamPassInterface.Done: n=%d out of range [1,%d]", n, len(i.buf)))
	}
	i.n = n
	i.state = stateDonePending
	i.jobCompletion.Set()
}

// Free releases the interface. No operation may be outstanding at Free.
func (i *StreamPassInterface) Free() {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("streamiface: StreamPassInterface.Free called while an operation is outstanding (state %v)", i.state))
	}
	i.jobOperation.Free()
	i.jobCompletion.Free()
	i.debug.Free()
}
