package packetproto

import (
	"encoding/binary"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/badvpn-flow/streamiface"
)

// Decoder is a stream-recv→packet-pass adapter (spec.md §4.9): it pulls
// raw bytes from an upstream StreamRecvInterface into a working buffer
// sized HeaderLen+maxPayload, extracts complete frames as soon as enough
// bytes have accumulated, and pushes each extracted payload downstream
// through a PacketPassInterface, one at a time. A length prefix exceeding
// maxPayload is reported via onFatal and latches the decoder.
type Decoder struct {
	debug debugobject.Object
	err   debugobject.Error

	input  *streamiface.StreamRecvInterface
	output *packetiface.PacketPassInterface

	maxPayload int
	buf        []byte
	filled     int
	pending    [][]byte

	recvOutstanding bool
	sendOutstanding bool

	onFatal func(error)
}

// NewDecoder constructs a Decoder pulling from input and pushing into
// output (both retained, not owned) and begins pumping immediately.
func NewDecoder(pg *reactor.PendingGroup, input *streamiface.StreamRecvInterface, output *packetiface.PacketPassInterface, onFatal func(error)) *Decoder {
	maxPayload := output.MTU()
	d := &Decoder{
		input:      input,
		output:     output,
		maxPayload: maxPayload,
		buf:        make([]byte, HeaderLen+maxPayload),
		onFatal:    onFatal,
	}
	d.debug.Init("PacketProtoDecoder")
	input.SetHandlerDone(d.onInputDone)
	output.SetHandlerDone(d.onOutputDone)
	d.pump()
	return d
}

func (d *Decoder) pump() {
	d.extract()
	d.trySend()
	d.tryRecv()
}

func (d *Decoder) extract() {
	for d.filled >= HeaderLen {
		length := int(binary.LittleEndian.Uint16(d.buf[:HeaderLen]))
		if length > d.maxPayload {
			d.fail(ErrOversizeFrame)
			return
		}
		total := HeaderLen + length
		if d.filled < total {
			break
		}
		frame := append([]byte(nil), d.buf[HeaderLen:total]...)
		d.pending = append(d.pending, frame)
		copy(d.buf, d.buf[total:d.filled])
		d.filled -= total
	}
}

func (d *Decoder) trySend() {
	if d.sendOutstanding || d.err.IsSet() || len(d.pending) == 0 {
		return
	}
	frame := d.pending[0]
	d.pending = d.pending[1:]
	d.sendOutstanding = true
	d.output.Send(frame)
}

func (d *Decoder) onOutputDone() {
	d.sendOutstanding = false
	d.trySend()
}

func (d *Decoder) tryRecv() {
	if d.recvOutstanding || d.err.IsSet() {
		return
	}
	if d.filled == len(d.buf) {
		// The buffer is sized HeaderLen+maxPayload, exactly one maximal
		// frame; extract already ran, so this cannot happen without an
		// oversize frame already having been rejected.
		return
	}
	d.recvOutstanding = true
	d.input.Recv(d.buf[d.filled:])
}

func (d *Decoder) onInputDone(n int) {
	d.recvOutstanding = false
	d.filled += n
	d.pump()
}

func (d *Decoder) fail(err error) {
	if d.err.IsSet() {
		return
	}
	d.err.Set(err)
	if d.onFatal != nil {
		d.onFatal(err)
	}
}

// Reset discards any buffered partial input and not-yet-sent extracted
// frames, as if the decoder had just been constructed. Does not clear a
// latched fatal error.
func (d *Decoder) Reset() {
	d.debug.Access()
	d.filled = 0
	d.pending = nil
}

// Free releases the Decoder. The input/output interfaces are the
// caller's responsibility.
func (d *Decoder) Free() {
	d.debug.Access()
	d.debug.Free()
}
