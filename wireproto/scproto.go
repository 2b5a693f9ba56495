package wireproto

import (
	"encoding/binary"
	"errors"
)

// SCMessageType is the one-byte type tag leading every SCProto message
// (spec.md §6).
type SCMessageType uint8

const (
	SCKeepalive SCMessageType = iota
	SCClientHello
	SCServerHello
	SCNewClient
	SCEndClient
	SCInboundMessage
	SCOutboundMessage
)

// ErrTruncatedSCMessage is returned when a buffer is too short for the
// type tag, or too short for the body its type implies.
var ErrTruncatedSCMessage = errors.New("wireproto: truncated SCProto message")

// ErrUnknownSCMessageType is returned for a type tag this decoder does
// not recognize.
var ErrUnknownSCMessageType = errors.New("wireproto: unknown SCProto message type")

// SCHello is the body of SCClientHello and SCServerHello: a protocol
// version negotiated between the two ends of the control channel.
type SCHello struct {
	Version uint16
}

// SCClientID identifies a peer in SCNewClient/SCEndClient.
type SCClientID struct {
	ClientID uint16
}

// SCMessage is the body of SCInboundMessage/SCOutboundMessage: a
// peer-addressed payload. ClientID is absent (zero) for outbound
// messages, which are implicitly addressed to the server.
type SCMessage struct {
	ClientID uint16
	Payload  []byte
}

// EncodeSCKeepalive returns the one-byte keepalive frame.
func EncodeSCKeepalive() []byte {
	return []byte{byte(SCKeepalive)}
}

// EncodeSCHello returns an encoded client or server hello.
func EncodeSCHello(typ SCMessageType, h SCHello) []byte {
	out := make([]byte, 0, 3)
	out = append(out, byte(typ))
	out = appendUint16(out, h.Version)
	return out
}

// EncodeSCClientID returns an encoded new/end-client announcement.
func EncodeSCClientID(typ SCMessageType, c SCClientID) []byte {
	out := make([]byte, 0, 3)
	out = append(out, byte(typ))
	out = appendUint16(out, c.ClientID)
	return out
}

// EncodeSCInboundMessage returns an encoded server-to-client message
// addressed to m.ClientID.
func EncodeSCInboundMessage(m SCMessage) []byte {
	out := make([]byte, 0, 3+len(m.Payload))
	out = append(out, byte(SCInboundMessage))
	out = appendUint16(out, m.ClientID)
	out = append(out, m.Payload...)
	return out
}

// EncodeSCOutboundMessage returns an encoded client-to-server message;
// the server infers the sender from the connection, so no client id is
// carried on the wire.
func EncodeSCOutboundMessage(payload []byte) []byte {
	out := make([]byte, 0, 1+len(payload))
	out = append(out, byte(SCOutboundMessage))
	out = append(out, payload...)
	return out
}

// DecodeSCMessage parses one SCProto frame (as delivered whole by a
// packetproto decoder) and reports its type plus a type-specific body.
// The returned body is one of SCHello, SCClientID, SCMessage, or nil for
// SCKeepalive; a caller type-switches on it.
func DecodeSCMessage(data []byte) (SCMessageType, any, error) {
	if len(data) < 1 {
		return 0, nil, ErrTruncatedSCMessage
	}
	typ := SCMessageType(data[0])
	body := data[1:]
	switch typ {
	case SCKeepalive:
		return typ, nil, nil
	case SCClientHello, SCServerHello:
		if len(body) < 2 {
			return 0, nil, ErrTruncatedSCMessage
		}
		return typ, SCHello{Version: binary.LittleEndian.Uint16(body[:2])}, nil
	case SCNewClient, SCEndClient:
		if len(body) < 2 {
			return 0, nil, ErrTruncatedSCMessage
		}
		return typ, SCClientID{ClientID: binary.LittleEndian.Uint16(body[:2])}, nil
	case SCInboundMessage:
		if len(body) < 2 {
			return 0, nil, ErrTruncatedSCMessage
		}
		return typ, SCMessage{
			ClientID: binary.LittleEndian.Uint16(body[:2]),
			Payload:  body[2:],
		}, nil
	case SCOutboundMessage:
		return typ, SCMessage{Payload: body}, nil
	default:
		return 0, nil, ErrUnknownSCMessageType
	}
}
