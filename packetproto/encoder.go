package packetproto

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/badvpn-flow/streamiface"
)

// Encoder is a recv→recv adapter (spec.md §4.9): it pulls packets from an
// upstream PacketRecvInterface and serves the framed byte stream (2-byte
// length prefix + payload) through a StreamRecvInterface it provides,
// honoring the stream interface's short-transfer semantics.
type Encoder struct {
	debug debugobject.Object

	Output *streamiface.StreamRecvInterface
	input  *packetiface.PacketRecvInterface

	payloadBuf []byte
	frame      []byte // header+payload of the current frame; nil if none pending
	pos        int
	dst        []byte
	haveDst    bool

	recvOutstanding bool
}

// NewEncoder constructs an Encoder pulling from input (retained, not
// owned) and exposing Output.
func NewEncoder(pg *reactor.PendingGroup, input *packetiface.PacketRecvInterface) *Encoder {
	if input.MTU() > MaxPayload {
		panic("packetproto: NewEncoder: input MTU exceeds representable payload length")
	}
	e := &Encoder{
		input:      input,
		payloadBuf: make([]byte, input.MTU()),
	}
	e.debug.Init("PacketProtoEncoder")
	e.Output = streamiface.NewStreamRecvInterface(pg, e.onStreamRecv)
	input.SetHandlerDone(e.onInputDone)
	return e
}

func (e *Encoder) onStreamRecv(dst []byte) {
	e.dst = dst
	e.haveDst = true
	e.pump()
}

func (e *Encoder) pump() {
	if !e.haveDst {
		return
	}
	if e.frame != nil {
		e.serve()
		return
	}
	if !e.recvOutstanding {
		e.recvOutstanding = true
		e.input.Recv(e.payloadBuf)
	}
}

func (e *Encoder) onInputDone(n int) {
	e.recvOutstanding = false
	e.frame = AppendHeader(make([]byte, 0, HeaderLen+n), n)
	e.frame = append(e.frame, e.payloadBuf[:n]...)
	e.pos = 0
	e.serve()
}

func (e *Encoder) serve() {
	n := copy(e.dst, e.frame[e.pos:])
	e.pos += n
	if e.pos >= len(e.frame) {
		e.frame = nil
		e.pos = 0
	}
	e.haveDst = false
	e.dst = nil
	e.Output.Done(n)
}

// Free releases the owned Output. The input is the caller's
// responsibility.
func (e *Encoder) Free() {
	e.debug.Access()
	e.Output.Free()
	e.debug.Free()
}
