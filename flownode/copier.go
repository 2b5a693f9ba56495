// Package flownode implements the identity/late-bind/observe nodes of
// spec.md §4.8: Copier, the pass/recv flavors of Connector, and Notifier.
package flownode

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// Copier provides both a pass-input and a recv-output of the same MTU:
// when both have an outstanding operation it copies input into output's
// destination, completes both, and waits for the next pair (spec.md §4.8).
// Used to rendezvous two pull/push halves that were constructed separately.
type Copier struct {
	debug debugobject.Object

	Input  *packetiface.PacketPassInterface
	Output *packetiface.PacketRecvInterface

	sendData  []byte
	haveSend  bool
	recvDst   []byte
	haveRecv  bool
}

// NewCopier constructs a Copier owning both interfaces it exposes.
func NewCopier(pg *reactor.PendingGroup, mtu int) *Copier {
	c := &Copier{}
	c.debug.Init("Copier")
	c.Input = packetiface.NewPacketPassInterface(pg, mtu, c.onSend)
	c.Output = packetiface.NewPacketRecvInterface(pg, mtu, c.onRecv)
	return c
}

func (c *Copier) onSend(data []byte) {
	c.sendData = data
	c.haveSend = true
	c.tryCopy()
}

func (c *Copier) onRecv(dst []byte) {
	c.recvDst = dst
	c.haveRecv = true
	c.tryCopy()
}

func (c *Copier) tryCopy() {
	if !c.haveSend || !c.haveRecv {
		return
	}
	n := copy(c.recvDst, c.sendData)
	c.haveSend = false
	c.haveRecv = false
	c.sendData = nil
	c.recvDst = nil
	c.Input.Done()
	c.Output.Done(n)
}

// Free releases both owned interfaces. Neither may have an outstanding
// operation.
func (c *Copier) Free() {
	c.debug.Access()
	c.Input.Free()
	c.Output.Free()
	c.debug.Free()
}
