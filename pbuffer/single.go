// Package pbuffer implements the one- and many-slot packet buffers of
// spec.md §4.10: shock absorbers that rendezvous a pull-mode input with a
// push-mode output of the same MTU.
package pbuffer

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
)

// SinglePacketBuffer couples a PacketRecvInterface to a PacketPassInterface
// of identical MTU, driving a perpetual recv→send→recv loop over one
// owned buffer (spec.md §4.10, §3 "Buffers": single-slot, pure coupling).
type SinglePacketBuffer struct {
	debug debugobject.Object

	input  *packetiface.PacketRecvInterface
	output *packetiface.PacketPassInterface
	buf    []byte
}

// NewSinglePacketBuffer starts the recv/send loop immediately; input and
// output must share the same MTU.
func NewSinglePacketBuffer(input *packetiface.PacketRecvInterface, output *packetiface.PacketPassInterface) *SinglePacketBuffer {
	if input.MTU() != output.MTU() {
		panic("pbuffer: SinglePacketBuffer: input and output MTU mismatch")
	}
	b := &SinglePacketBuffer{
		input:  input,
		output: output,
		buf:    make([]byte, input.MTU()),
	}
	b.debug.Init("SinglePacketBuffer")
	input.SetHandlerDone(b.onRecvDone)
	output.SetHandlerDone(b.onSendDone)
	b.startRecv()
	return b
}

func (b *SinglePacketBuffer) startRecv() {
	b.input.Recv(b.buf)
}

func (b *SinglePacketBuffer) onRecvDone(n int) {
	b.output.Send(b.buf[:n])
}

func (b *SinglePacketBuffer) onSendDone() {
	b.startRecv()
}

// Free tears the buffer down. The caller must have already detached (or be
// freeing) both input and output; this does not free them.
func (b *SinglePacketBuffer) Free() {
	b.debug.Access()
	b.debug.Free()
}
