// Package wireproto implements the illustrative DataProto and SCProto
// headers from spec.md §6: small, stateless encode/decode helpers for the
// mesh datapath's frame header and the mesh control channel's
// type-tagged messages. Neither codec owns a reactor node — callers wrap
// them around a packetproto/fragmentproto pipeline the way
// cmd/flowdemo does.
package wireproto

import (
	"encoding/binary"
	"errors"
)

// ErrTruncatedDataHeader is returned when a buffer is too short to hold
// the DataProto header it claims, or too short for the peer-id list the
// header declares.
var ErrTruncatedDataHeader = errors.New("wireproto: truncated DataProto header")

// DataProto flag bits (spec.md §6).
const (
	DataFlagRelay = 1 << 0
)

// dataHeaderLen is the fixed portion of a DataProto header: flags (1) +
// from_id (2) + num_peer_ids (2).
const dataHeaderLen = 1 + 2 + 2

// DataHeader is the illustrative DataProto header (spec.md §6): a frame
// addressed from one peer to a list of peers, carried ahead of the
// payload frame.
type DataHeader struct {
	Flags   uint8
	FromID  uint16
	PeerIDs []uint16
}

// EncodedLen returns the byte length of h's header, excluding frame.
func (h DataHeader) EncodedLen() int {
	return dataHeaderLen + 2*len(h.PeerIDs)
}

// AppendDataHeader appends h's encoded header (flags, from_id,
// num_peer_ids, peer_ids...) to dst, little-endian throughout.
func AppendDataHeader(dst []byte, h DataHeader) []byte {
	if len(h.PeerIDs) > 0xFFFF {
		panic("wireproto: AppendDataHeader: too many peer ids")
	}
	dst = append(dst, h.Flags)
	dst = appendUint16(dst, h.FromID)
	dst = appendUint16(dst, uint16(len(h.PeerIDs)))
	for _, id := range h.PeerIDs {
		dst = appendUint16(dst, id)
	}
	return dst
}

// EncodeData returns a full DataProto packet: h's header followed by
// frame.
func EncodeData(h DataHeader, frame []byte) []byte {
	out := make([]byte, 0, h.EncodedLen()+len(frame))
	out = AppendDataHeader(out, h)
	out = append(out, frame...)
	return out
}

// DecodeData parses a DataProto packet, returning the header and the
// remaining frame payload (a subslice of data, not copied).
func DecodeData(data []byte) (DataHeader, []byte, error) {
	if len(data) < dataHeaderLen {
		return DataHeader{}, nil, ErrTruncatedDataHeader
	}
	h := DataHeader{
		Flags:  data[0],
		FromID: binary.LittleEndian.Uint16(data[1:3]),
	}
	numPeers := int(binary.LittleEndian.Uint16(data[3:5]))
	need := dataHeaderLen + 2*numPeers
	if len(data) < need {
		return DataHeader{}, nil, ErrTruncatedDataHeader
	}
	if numPeers > 0 {
		h.PeerIDs = make([]uint16, numPeers)
		for i := range h.PeerIDs {
			off := dataHeaderLen + 2*i
			h.PeerIDs[i] = binary.LittleEndian.Uint16(data[off : off+2])
		}
	}
	return h, data[need:], nil
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}
