// Package packetproto implements PacketProto framing (spec.md §4.9, §6): a
// 2-byte little-endian length prefix followed by payload, and the
// recv/pass adapters that convert packets to and from a byte stream.
package packetproto

import "encoding/binary"

// HeaderLen is the size of the PacketProto length prefix.
const HeaderLen = 2

// MaxPayload is the largest payload length representable in the 16-bit
// length prefix.
const MaxPayload = 0xFFFF

// AppendHeader appends the 2-byte little-endian length prefix for a
// payload of the given length to dst.
func AppendHeader(dst []byte, payloadLen int) []byte {
	if payloadLen < 0 || payloadLen > MaxPayload {
		panic("packetproto: payload length out of range")
	}
	var hdr [HeaderLen]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(payloadLen))
	return append(dst, hdr[:]...)
}

// Encode returns the framed representation of payload: a 2-byte
// little-endian length prefix followed by payload.
func Encode(payload []byte) []byte {
	out := make([]byte, 0, HeaderLen+len(payload))
	out = AppendHeader(out, len(payload))
	out = append(out, payload...)
	return out
}
