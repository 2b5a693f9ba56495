package flownode

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// Notifier is an identity pass-through that invokes an observer callback
// on every packet seen before forwarding it downstream. Cancel is
// forwarded iff the downstream interface supports it (spec.md §4.8).
type Notifier struct {
	debug debugobject.Object

	Input    *packetiface.PacketPassInterface
	output   *packetiface.PacketPassInterface
	observer func(data []byte)
}

// NewNotifier wires Input (upstream-facing, owned) to output (downstream,
// not owned), invoking observer on every packet before forwarding.
// observer may be nil.
func NewNotifier(pg *reactor.PendingGroup, mtu int, output *packetiface.PacketPassInterface, observer func(data []byte)) *Notifier {
	if output.MTU() != mtu {
		panic("flownode: NewNotifier: MTU mismatch with output")
	}
	n := &Notifier{output: output, observer: observer}
	n.debug.Init("Notifier")
	n.Input = packetiface.NewPacketPassInterface(pg, mtu, n.onSend)
	output.SetHandlerDone(n.onDone)
	if output.HasCancel() {
		n.Input.EnableCancel(n.onCancel)
	}
	return n
}

func (n *Notifier) onSend(data []byte) {
	if n.observer != nil {
		n.observer(data)
	}
	n.output.Send(data)
}

func (n *Notifier) onDone() {
	n.Input.Done()
}

func (n *Notifier) onCancel() {
	n.output.RequestCancel()
}

// Free releases the owned Input.
func (n *Notifier) Free() {
	n.debug.Access()
	n.Input.Free()
	n.debug.Free()
}
