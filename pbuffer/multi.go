package pbuffer

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
)

// PacketBuffer is the many-slot flavor of spec.md §4.10: a chunk-ring of N
// slots (≥ input MTU each) where input recv and output send proceed
// independently — input advances whenever a free slot exists, output
// advances whenever a filled slot exists. Decouples producer/consumer
// latency and absorbs bursts.
type PacketBuffer struct {
	debug debugobject.Object

	input  *packetiface.PacketRecvInterface
	output *packetiface.PacketPassInterface

	slots   [][]byte
	lens    []int
	readIdx int
	count   int // filled slots

	recvOutstanding bool
	sendOutstanding bool
}

// NewPacketBuffer constructs a ring of numSlots entries, each sized to
// input's MTU (which must equal output's MTU), and starts driving both
// directions independently.
func NewPacketBuffer(input *packetiface.PacketRecvInterface, output *packetiface.PacketPassInterface, numSlots int) *PacketBuffer {
	if input.MTU() != output.MTU() {
		panic("pbuffer: PacketBuffer: input and output MTU mismatch")
	}
	if numSlots < 1 {
		panic("pbuffer: PacketBuffer: numSlots must be >= 1")
	}
	b := &PacketBuffer{
		input:  input,
		output: output,
		slots:  make([][]byte, numSlots),
		lens:   make([]int, numSlots),
	}
	for i := range b.slots {
		b.slots[i] = make([]byte, input.MTU())
	}
	b.debug.Init("PacketBuffer")
	input.SetHandlerDone(b.onRecvDone)
	output.SetHandlerDone(b.onSendDone)
	b.maybeStartRecv()
	b.maybeStartSend()
	return b
}

func (b *PacketBuffer) writeIdx() int {
	idx := b.readIdx + b.count
	if idx >= len(b.slots) {
		idx -= len(b.slots)
	}
	return idx
}

func (b *PacketBuffer) maybeStartRecv() {
	if b.recvOutstanding || b.count == len(b.slots) {
		return
	}
	b.recvOutstanding = true
	b.input.Recv(b.slots[b.writeIdx()])
}

func (b *PacketBuffer) maybeStartSend() {
	if b.sendOutstanding || b.count == 0 {
		return
	}
	b.sendOutstanding = true
	b.output.Send(b.slots[b.readIdx][:b.lens[b.readIdx]])
}

func (b *PacketBuffer) onRecvDone(n int) {
	b.lens[b.writeIdx()] = n
	b.count++
	b.recvOutstanding = false
	b.maybeStartRecv()
	b.maybeStartSend()
}

func (b *PacketBuffer) onSendDone() {
	b.readIdx++
	if b.readIdx >= len(b.slots) {
		b.readIdx = 0
	}
	b.count--
	b.sendOutstanding = false
	b.maybeStartSend()
	b.maybeStartRecv()
}

// Free tears the buffer down; caller must already have detached input and
// output.
func (b *PacketBuffer) Free() {
	b.debug.Access()
	b.debug.Free()
}
