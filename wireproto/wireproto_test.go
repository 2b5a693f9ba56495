package wireproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataHeaderRoundTrip(t *testing.T) {
	h := DataHeader{Flags: DataFlagRelay, FromID: 7, PeerIDs: []uint16{1, 2, 3}}
	frame := []byte{0xAA, 0xBB, 0xCC}

	encoded := EncodeData(h, frame)

	gotHeader, gotFrame, err := DecodeData(encoded)
	require.NoError(t, err)
	require.Equal(t, h, gotHeader)
	require.Equal(t, frame, gotFrame)
}

func TestDataHeaderNoPeers(t *testing.T) {
	h := DataHeader{Flags: 0, FromID: 42}
	encoded := EncodeData(h, nil)

	gotHeader, gotFrame, err := DecodeData(encoded)
	require.NoError(t, err)
	require.Equal(t, uint16(42), gotHeader.FromID)
	require.Empty(t, gotHeader.PeerIDs)
	require.Empty(t, gotFrame)
}

func TestDataHeaderTruncated(t *testing.T) {
	_, _, err := DecodeData([]byte{0x00, 0x01})
	require.ErrorIs(t, err, ErrTruncatedDataHeader)

	h := DataHeader{PeerIDs: []uint16{1, 2}}
	encoded := AppendDataHeader(nil, h)
	_, _, err = DecodeData(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, ErrTruncatedDataHeader)
}

func TestSCKeepaliveIsOneByte(t *testing.T) {
	frame := EncodeSCKeepalive()
	require.Len(t, frame, 1)

	typ, body, err := DecodeSCMessage(frame)
	require.NoError(t, err)
	require.Equal(t, SCKeepalive, typ)
	require.Nil(t, body)
}

func TestSCHelloRoundTrip(t *testing.T) {
	frame := EncodeSCHello(SCClientHello, SCHello{Version: 3})

	typ, body, err := DecodeSCMessage(frame)
	require.NoError(t, err)
	require.Equal(t, SCClientHello, typ)
	require.Equal(t, SCHello{Version: 3}, body)
}

func TestSCClientIDRoundTrip(t *testing.T) {
	frame := EncodeSCClientID(SCNewClient, SCClientID{ClientID: 99})

	typ, body, err := DecodeSCMessage(frame)
	require.NoError(t, err)
	require.Equal(t, SCNewClient, typ)
	require.Equal(t, SCClientID{ClientID: 99}, body)
}

func TestSCInboundMessageRoundTrip(t *testing.T) {
	frame := EncodeSCInboundMessage(SCMessage{ClientID: 5, Payload: []byte("hi")})

	typ, body, err := DecodeSCMessage(frame)
	require.NoError(t, err)
	require.Equal(t, SCInboundMessage, typ)
	require.Equal(t, SCMessage{ClientID: 5, Payload: []byte("hi")}, body)
}

func TestSCOutboundMessageRoundTrip(t *testing.T) {
	frame := EncodeSCOutboundMessage([]byte("ping"))

	typ, body, err := DecodeSCMessage(frame)
	require.NoError(t, err)
	require.Equal(t, SCOutboundMessage, typ)
	require.Equal(t, SCMessage{Payload: []byte("ping")}, body)
}

func TestSCMessageTruncated(t *testing.T) {
	_, _, err := DecodeSCMessage(nil)
	require.ErrorIs(t, err, ErrTruncatedSCMessage)

	_, _, err = DecodeSCMessage([]byte{byte(SCClientHello), 0x01})
	require.ErrorIs(t, err, ErrTruncatedSCMessage)
}

func TestSCMessageUnknownType(t *testing.T) {
	_, _, err := DecodeSCMessage([]byte{0xFF})
	require.ErrorIs(t, err, ErrUnknownSCMessageType)
}
