package flownode

import (
	"fmt"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// RecvConnector provides a PacketRecvInterface immediately; the interface
// it pulls from (the "input") is attached and detached later, and any
// Recv issued while detached is buffered and forwarded on Attach (spec.md
// §4.8, scenario 5).
type RecvConnector struct {
	debug debugobject.Object

	Output *packetiface.PacketRecvInterface
	input  *packetiface.PacketRecvInterface

	pendingDst    []byte
	havePending   bool
	opOutstanding bool
}

// NewRecvConnector constructs a detached connector exposing Output.
func NewRecvConnector(pg *reactor.PendingGroup, mtu int) *RecvConnector {
	c := &RecvConnector{}
	c.debug.Init("RecvConnector")
	c.Output = packetiface.NewPacketRecvInterface(pg, mtu, c.onOutputRecv)
	return c
}

func (c *RecvConnector) onOutputRecv(dst []byte) {
	c.pendingDst = dst
	c.havePending = true
	c.tryForward()
}

func (c *RecvConnector) tryForward() {
	if !c.havePending || c.input == nil || c.opOutstanding {
		return
	}
	c.opOutstanding = true
	c.input.Recv(c.pendingDst)
}

// Attach wires input as the connector's upstream, forwarding any buffered
// Recv immediately. input's MTU must equal Output's.
func (c *RecvConnector) Attach(input *packetiface.PacketRecvInterface) {
	c.debug.Access()
	if c.input != nil {
		panic("flownode: RecvConnector.Attach: already attached")
	}
	if input.MTU() != c.Output.MTU() {
		panic(fmt.Sprintf("flownode: RecvConnector.Attach: MTU mismatch (%d vs %d)", input.MTU(), c.Output.MTU()))
	}
	c.input = input
	input.SetHandlerDone(c.onInputDone)
	c.tryForward()
}

func (c *RecvConnector) onInputDone(n int) {
	c.opOutstanding = false
	c.havePending = false
	c.Output.Done(n)
}

// Detach removes and returns the attached input. Panics if an operation
// issued to it is still outstanding.
func (c *RecvConnector) Detach() *packetiface.PacketRecvInterface {
	c.debug.Access()
	if c.opOutstanding {
		panic("flownode: RecvConnector.Detach: operation outstanding on attached input")
	}
	in := c.input
	c.input = nil
	return in
}

// Free releases the owned Output. The (detached) input, if any, is the
// caller's responsibility.
func (c *RecvConnector) Free() {
	c.debug.Access()
	c.Output.Free()
	c.debug.Free()
}

// PassConnector is the push-mode symmetric counterpart of RecvConnector:
// provides a PacketPassInterface immediately and forwards Send calls to an
// attached output once one exists.
type PassConnector struct {
	debug debugobject.Object

	Input  *packetiface.PacketPassInterface
	output *packetiface.PacketPassInterface

	pendingData   []byte
	havePending   bool
	opOutstanding bool
}

// NewPassConnector constructs a detached connector exposing Input.
func NewPassConnector(pg *reactor.PendingGroup, mtu int) *PassConnector {
	c := &PassConnector{}
	c.debug.Init("PassConnector")
	c.Input = packetiface.NewPacketPassInterface(pg, mtu, c.onInputSend)
	return c
}

func (c *PassConnector) onInputSend(data []byte) {
	c.pendingData = data
	c.havePending = true
	c.tryForward()
}

func (c *PassConnector) tryForward() {
	if !c.havePending || c.output == nil || c.opOutstanding {
		return
	}
	c.opOutstanding = true
	c.output.Send(c.pendingData)
}

// Attach wires output as the connector's downstream.
func (c *PassConnector) Attach(output *packetiface.PacketPassInterface) {
	c.debug.Access()
	if c.output != nil {
		panic("flownode: PassConnector.Attach: already attached")
	}
	if output.MTU() != c.Input.MTU() {
		panic(fmt.Sprintf("flownode: PassConnector.Attach: MTU mismatch (%d vs %d)", output.MTU(), c.Input.MTU()))
	}
	c.output = output
	output.SetHandlerDone(c.onOutputDone)
	c.tryForward()
}

func (c *PassConnector) onOutputDone() {
	c.opOutstanding = false
	c.havePending = false
	c.pendingData = nil
	c.Input.Done()
}

// Detach removes and returns the attached output. Panics if an operation
// issued to it is still outstanding.
func (c *PassConnector) Detach() *packetiface.PacketPassInterface {
	c.debug.Access()
	if c.opOutstanding {
		panic("flownode: PassConnector.Detach: operation outstanding on attached output")
	}
	out := c.output
	c.output = nil
	return out
}

// Free releases the owned Input.
func (c *PassConnector) Free() {
	c.debug.Access()
	c.Input.Free()
	c.debug.Free()
}
