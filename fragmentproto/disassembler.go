package fragmentproto

import (
	"time"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// Disassembler is a packet-pass input → packet-recv output adapter
// (spec.md §4.14): frames pushed into Input are chunked and packed as
// densely as possible into carrier packets of carrierMTU bytes, pulled out
// through Output. Each chunk is additionally capped at chunkMTU bytes (<0
// for no explicit limit beyond the carrier's remaining capacity), per the
// original FragmentProtoDisassembler's chunk_mtu parameter. If latencyMs is
// negative, a partial (not-yet-full) carrier is emitted as soon as its
// frame's data runs out; otherwise the Disassembler waits up to latencyMs
// for a following frame's chunks to share the same carrier before
// flushing it on a timer.
type Disassembler struct {
	debug debugobject.Object

	Input  *packetiface.PacketPassInterface
	Output *packetiface.PacketRecvInterface

	carrierMTU int
	chunkMTU   int
	latencyMs  int

	nextFrameID uint16

	outBuf []byte
	outLen int

	queue   [][]byte
	recvDst []byte
	haveDst bool

	timer *reactor.Timer
	armed bool
}

// NewDisassembler constructs a Disassembler for frames up to frameMTU
// bytes, packed into carriers of carrierMTU bytes (which must exceed
// HeaderLen), each chunk capped at chunkMTU bytes (<0 for no explicit
// limit), with the latency knob described above.
func NewDisassembler(r *reactor.Reactor, frameMTU, carrierMTU, chunkMTU, latencyMs int) *Disassembler {
	if carrierMTU <= HeaderLen {
		panic("fragmentproto: NewDisassembler: carrierMTU too small")
	}
	if chunkMTU == 0 {
		panic("fragmentproto: NewDisassembler: chunkMTU must be >0 or <0 for no limit")
	}
	d := &Disassembler{
		carrierMTU: carrierMTU,
		chunkMTU:   chunkMTU,
		latencyMs:  latencyMs,
		outBuf:     make([]byte, 0, carrierMTU),
	}
	d.debug.Init("FragmentProtoDisassembler")
	d.Input = packetiface.NewPacketPassInterface(r.Pending(), frameMTU, d.onSend)
	d.Output = packetiface.NewPacketRecvInterface(r.Pending(), carrierMTU, d.onRecv)
	d.timer = r.NewTimer(d.onTimer)
	return d
}

func (d *Disassembler) onSend(data []byte) {
	d.packFrame(data)
	d.Input.Done()
	if d.latencyMs < 0 {
		d.flushCarrier()
	} else if d.outLen > 0 && !d.armed {
		d.armed = true
		d.timer.Set(time.Duration(d.latencyMs) * time.Millisecond)
	}
	d.tryServe()
}

func (d *Disassembler) packFrame(data []byte) {
	frameID := d.nextFrameID
	d.nextFrameID++

	start := 0
	for {
		remain := d.carrierMTU - d.outLen
		if remain <= HeaderLen {
			d.flushCarrier()
			remain = d.carrierMTU
		}
		avail := remain - HeaderLen
		if d.chunkMTU >= 0 && d.chunkMTU < avail {
			avail = d.chunkMTU
		}
		chunkLen := len(data) - start
		if chunkLen > avail {
			chunkLen = avail
		}
		last := start+chunkLen == len(data)
		h := chunkHeader{frameID: frameID, chunkStart: uint16(start), chunkLen: uint16(chunkLen), isLast: last}
		d.outBuf = appendHeader(d.outBuf[:d.outLen], h)
		d.outBuf = append(d.outBuf, data[start:start+chunkLen]...)
		d.outLen = len(d.outBuf)
		start += chunkLen
		if last {
			break
		}
	}
}

func (d *Disassembler) flushCarrier() {
	if d.outLen == 0 {
		return
	}
	d.queue = append(d.queue, append([]byte(nil), d.outBuf[:d.outLen]...))
	d.outBuf = d.outBuf[:0]
	d.outLen = 0
	if d.armed {
		d.timer.Unset()
		d.armed = false
	}
}

func (d *Disassembler) onTimer() {
	d.armed = false
	d.flushCarrier()
	d.tryServe()
}

func (d *Disassembler) onRecv(dst []byte) {
	d.recvDst = dst
	d.haveDst = true
	d.tryServe()
}

func (d *Disassembler) tryServe() {
	if !d.haveDst || len(d.queue) == 0 {
		return
	}
	carrier := d.queue[0]
	d.queue = d.queue[1:]
	n := copy(d.recvDst, carrier)
	d.haveDst = false
	d.recvDst = nil
	d.Output.Done(n)
}

// Free releases both owned interfaces and the latency timer.
func (d *Disassembler) Free() {
	d.debug.Access()
	d.timer.Unset()
	d.Input.Free()
	d.Output.Free()
	d.debug.Free()
}
