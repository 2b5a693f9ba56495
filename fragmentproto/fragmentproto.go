// Package fragmentproto implements FragmentProto framing (spec.md §4.14,
// §6): packing/unpacking variable-size logical frames into carrier
// packets of a fixed, smaller MTU, via a per-chunk header carrying a
// frame id, starting offset, length, and last-chunk flag.
package fragmentproto

import "encoding/binary"

// HeaderLen is the size of one chunk header: u16 frame_id, u16
// chunk_start, u16 chunk_len, u8 is_last.
const HeaderLen = 7

// MaxChunksPerFrame returns the maximum number of chunks a single input
// frame of frameMTU bytes can be split into over a carrier whose payload
// capacity per chunk is carrierMTU-HeaderLen (spec.md §4.14): the ceiling
// of frameMTU over that capacity, plus one to cover the chunk that starts
// mid-carrier.
func MaxChunksPerFrame(frameMTU, carrierMTU int) int {
	capacity := carrierMTU - HeaderLen
	if capacity <= 0 {
		panic("fragmentproto: carrierMTU too small to carry a chunk header")
	}
	return (frameMTU+capacity-1)/capacity + 1
}

// chunkHeader is the decoded form of one 7-byte chunk header.
type chunkHeader struct {
	frameID     uint16
	chunkStart  uint16
	chunkLen    uint16
	isLast      bool
}

func appendHeader(dst []byte, h chunkHeader) []byte {
	var b [HeaderLen]byte
	binary.LittleEndian.PutUint16(b[0:2], h.frameID)
	binary.LittleEndian.PutUint16(b[2:4], h.chunkStart)
	binary.LittleEndian.PutUint16(b[4:6], h.chunkLen)
	if h.isLast {
		b[6] = 1
	}
	return append(dst, b[:]...)
}

func parseHeader(b []byte) chunkHeader {
	return chunkHeader{
		frameID:    binary.LittleEndian.Uint16(b[0:2]),
		chunkStart: binary.LittleEndian.Uint16(b[2:4]),
		chunkLen:   binary.LittleEndian.Uint16(b[4:6]),
		isLast:     b[6] != 0,
	}
}
