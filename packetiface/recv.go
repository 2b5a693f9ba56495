package packetiface

import (
	"fmt"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// PacketRecvInterface is the pull-mode packet transport of spec.md §4.5: a
// puller calls Recv with a destination buffer of at least MTU bytes; the
// provider (constructed with a handlerRecv callback) eventually calls Done
// with the number of bytes it wrote. There is no cancel for Recv.
type PacketRecvInterface struct {
	debug debugobject.Object

	mtu int

	handlerRecv func(dst []byte)
	handlerDone func(n int)

	state state
	dst   []byte
	n     int

	jobOperation  *reactor.PendingJob
	jobCompletion *reactor.PendingJob
}

// NewPacketRecvInterface constructs a provider-side interface. handlerRecv
// is invoked (via a pending job) to fill dst; it must eventually call Done.
func NewPacketRecvInterface(pg *reactor.PendingGroup, mtu int, handlerRecv func(dst []byte)) *PacketRecvInterface {
	if handlerRecv == nil {
		panic("packetiface: PacketRecvInterface: handlerRecv must not be nil")
	}
	if mtu < 0 {
		panic("packetiface: PacketRecvInterface: negative MTU")
	}
	i := &PacketRecvInterface{
		mtu:         mtu,
		handlerRecv: handlerRecv,
	}
	i.debug.Init("PacketRecvInterface")
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

// MTU returns the minimum destination buffer size the provider expects.
func (i *PacketRecvInterface) MTU() int {
	i.debug.Access()
	return i.mtu
}

// SetHandlerDone attaches the puller's completion callback, invoked with
// the number of bytes written after every Recv's eventual Done.
func (i *PacketRecvInterface) SetHandlerDone(handlerDone func(n int)) {
	i.debug.Access()
	i.handlerDone = handlerDone
}

// Recv requests a packet be written into dst, which must be at least MTU
// bytes and remain valid (writable by the provider) until Done fires.
func (i *PacketRecvInterface) Recv(dst []byte) {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("packetiface: PacketRecvInterface.Recv called in state %v, want none", i.state))
	}
	if len(dst) < i.mtu {
		panic(fmt.Sprintf("packetiface: PacketRecvInterface.Recv: dst of %d bytes smaller than MTU %d", len(dst), i.mtu))
	}
	i.dst = dst
	i.state = stateOperationPending
	i.jobOperation.Set()
}

// Done is called by the provider (from within handlerRecv, synchronously
// or later) to report that n bytes were written into dst.
func (i *PacketRecvInterface) Done(n int) {
	i.debug.Access()
	if i.state != stateBusy {
		panic(fmt.Sprintf("packetiface: PacketRecvInterface.Done called in state %v, want busy", i.state))
	}
	if n < 0 || n > len(i.dst) {
		panic(fmt.Sprintf("packetiface: PacketRecvInterface.Done: n=%d out of range [0,%d]", n, len(i.dst)))
	}
	i.n = n
	i.state = stateDonePending
	i.jobCompletion.Set()
}

// Free releases the interface. No operation may be outstanding at Free.
func (i *PacketRecvInterface) Free() {
	i.debug.Access()
	if i.state != stateNone {
		panic(fmt.Sprintf("packetiface: PacketRecvInterface.Free called while an operation is outstanding (state %v)", i.state))
	}
	i.jobOperation.Free()
	i.jobCompletion.Free()
	i.debug.Free()
}
