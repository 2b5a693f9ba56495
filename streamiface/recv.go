package streamiface

import (
	"fmt"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// StreamRecvInterface is the pull-mode stream transport of spec.md §4.6: a
// puller calls Recv with a non-empty destination buffer; the provider
// eventually calls Done(n) with 1 <= n <= len(dst) bytes written.
type StreamRecvInterface struct {
	debug debugobject.Object

	handlerRecv func(dst []byte)
	handlerDone func(n int)

	state state
	dst   []byte
	n     int

	jobOperation  *reactor.PendingJob
	jobCompletion *reactor.PendingJob
}

// NewStreamRecvInterface constructs a provider-side interface. handlerRecv
// is invoked (via a pending job) to fill dst.
func NewStreamRecvInterface(pg *reactor.PendingGroup, handlerRecv func(dst []byte)) *StreamRecvInterface {
	if handlerRecv == nil {
		panic("streamiface: StreamRecvInterface: handlerRecv must not be nil")
	}
	i := &StreamRecvInterface{handlerRecv: handlerRecv}
	i.debug.Init("StreamRecvInterface")
	i.jobOperation = pg.NewJob(func() {
		i.state = stateBusy
		i.handlerRecv(i.dst)
	})
	i.jobCompletion = pg.NewJob(func() {
		i.state = stateNone
		i.dst = nil
		n := i.n
		i.n = 0
		if i.handlerDone != nil {
			i.handlerDone(n)
		}
	})
	return i
}

// SetHandlerDone attaches the puller's completion callback.
func (i *StreamRecvInterface) SetHandlerDone(handlerDone func(n int)) {
	i.debug.Access()
	i.handlerDone = handlerDone
}

// Recv requests the provider write into a non-empty dst.
func (i *StreamRecvInterface) Recv(dst []byte) {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("streamiface: StreamRecvInterface.Recv called in state %v, want none", i.state))
	}
	if len(dst) == 0 {
		panic("streamiface: StreamRecvInterface.Recv: empty buffer")
	}
	i.dst = dst
	i.state = stateOperationPending
	i.jobOperation.Set()
}

// Done reports n bytes (1 <= n <= len(dst) offered to Recv) were written.
func (i *StreamRecvInterface) Done(n int) {
	i.debug.Access()
	if i.state != stateBusy {
		panic(fmt.Sprintf("streamiface: StreamRecvInterface.Done called in state %v, want busy", i.state))
	}
	if n < 1 || n > len(i.dst) {
		panic(fmt.Sprintf("streamiface: StreamRecvInterface.Done: n=%d out of range [1,%d]", n, len(i.dst)))
	}
	i.n = n
	i.state = stateDonePending
	i.jobCompletion.Set()
}

// Free releases the interface. No operation may be outstanding at Free.
func (i *StreamRecvInterface) Free() {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("streamiface: StreamRecvInterface.Free called while an operation is outstanding (state %v)", i.state))
	}
	i.jobOperation.Free()
	i.jobCompletion.Free()
	i.debug.Free()
}
