package fragmentproto

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

type interval struct{ start, end int }

func mergeInsert(intervals []interval, s, e int) []interval {
	out := make([]interval, 0, len(intervals)+1)
	inserted := false
	for _, iv := range intervals {
		switch {
		case iv.end < s:
			out = append(out, iv)
		case iv.start > e:
			if !inserted {
				out = append(out, interval{s, e})
				inserted = true
			}
			out = append(out, iv)
		default:
			if iv.start < s {
				s = iv.start
			}
			if iv.end > e {
				e = iv.end
			}
		}
	}
	if !inserted {
		out = append(out, interval{s, e})
	}
	return out
}

type assemblerFrame struct {
	buf       []byte
	intervals []interval
	total     int // -1 until the last chunk has been seen
}

// Assembler is the inverse of Disassembler: a packet-pass input of carrier
// packets feeds a packet-pass output of reassembled frames (spec.md
// §4.14). Chunks may arrive in any order; a frame is emitted once its
// last-chunk flag has been seen and every byte in [0,total) is covered.
//
// Because a Disassembler never begins packing a frame's chunks into the
// carrier stream until the previous frame's chunks are fully packed (see
// disassembler.go), and carriers are delivered downstream strictly in
// production order, frames complete here in the same order they were fed
// to a paired Disassembler — no separate resequencing stage is needed.
type Assembler struct {
	debug debugobject.Object
	err   debugobject.Error

	Input  *packetiface.PacketPassInterface
	output *packetiface.PacketPassInterface

	frameMTU int
	frames   map[uint16]*assemblerFrame

	queue           [][]byte
	sendOutstanding bool

	onFatal func(error)
}

// NewAssembler constructs an Assembler accepting carriers of carrierMTU
// bytes on Input and pushing reassembled frames (at most frameMTU bytes)
// into output (retained, not owned).
func NewAssembler(r *reactor.Reactor, carrierMTU int, output *packetiface.PacketPassInterface, onFatal func(error)) *Assembler {
	a := &Assembler{
		output:   output,
		frameMTU: output.MTU(),
		frames:   make(map[uint16]*assemblerFrame),
		onFatal:  onFatal,
	}
	a.debug.Init("FragmentProtoAssembler")
	a.Input = packetiface.NewPacketPassInterface(r.Pending(), carrierMTU, a.onSend)
	output.SetHandlerDone(a.onOutputDone)
	return a
}

func (a *Assembler) onSend(data []byte) {
	if !a.err.IsSet() {
		a.parseCarrier(data)
	}
	a.Input.Done()
	a.trySend()
}

func (a *Assembler) parseCarrier(data []byte) {
	offset := 0
	for offset < len(data) {
		if offset+HeaderLen > len(data) {
			a.fail(ErrTruncatedHeader)
			return
		}
		h := parseHeader(data[offset : offset+HeaderLen])
		payloadStart := offset + HeaderLen
		payloadEnd := payloadStart + int(h.chunkLen)
		if payloadEnd > len(data) {
			a.fail(ErrChunkOverrunsCarrier)
			return
		}
		a.applyChunk(h, data[payloadStart:payloadEnd])
		offset = payloadEnd
	}
}

func (a *Assembler) applyChunk(h chunkHeader, payload []byte) {
	f := a.frames[h.frameID]
	if f == nil {
		f = &assemblerFrame{buf: make([]byte, a.frameMTU), total: -1}
		a.frames[h.frameID] = f
	}
	start := int(h.chunkStart)
	end := start + int(h.chunkLen)
	if end > len(f.buf) {
		a.fail(ErrFrameOverrunsMTU)
		return
	}
	copy(f.buf[start:end], payload)
	f.intervals = mergeInsert(f.intervals, start, end)
	if h.isLast {
		f.total = end
	}
	if f.total >= 0 && len(f.intervals) == 1 && f.intervals[0].start == 0 && f.intervals[0].end == f.total {
		a.queue = append(a.queue, append([]byte(nil), f.buf[:f.total]...))
		delete(a.frames, h.frameID)
	}
}

func (a *Assembler) trySend() {
	if a.sendOutstanding || a.err.IsSet() || len(a.queue) == 0 {
		return
	}
	frame := a.queue[0]
	a.queue = a.queue[1:]
	a.sendOutstanding = true
	a.output.Send(frame)
}

func (a *Assembler) onOutputDone() {
	a.sendOutstanding = false
	a.trySend()
}

func (a *Assembler) fail(err error) {
	if a.err.IsSet() {
		return
	}
	a.err.Set(err)
	if a.onFatal != nil {
		a.onFatal(err)
	}
}

// Free releases the owned Input. The output is the caller's
// responsibility.
func (a *Assembler) Free() {
	a.debug.Access()
	a.Input.Free()
	a.debug.Free()
}
