package packetiface

import (
	"context"
	"testing"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
)

func TestPacketRecvInterfaceRecvDoneRoundTrip(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var iface *PacketRecvInterface
	iface = NewPacketRecvInterface(r.Pending(), 16, func(dst []byte) {
		n := copy(dst, "hi")
		iface.Done(n)
	})

	var gotN int
	iface.SetHandlerDone(func(n int) {
		gotN = n
		r.Quit(0)
	})

	buf := make([]byte, 16)
	iface.Recv(buf)
	r.Run(context.Background())

	require.Equal(t, 2, gotN)
	require.Equal(t, "hi", string(buf[:gotN]))
	iface.Free()
}

func TestPacketRecvInterfaceRecvUndersizedDstPanics(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	i := NewPacketRecvInterface(r.Pending(), 16, func(dst []byte) {})
	require.Panics(t, func() { i.Recv(make([]byte, 4)) })
}

func TestPacketRecvInterfaceDoneOutOfRangePanics(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var iface *PacketRecvInterface
	iface = NewPacketRecvInterface(r.Pending(), 16, func(dst []byte) {
		require.Panics(t, func() { iface.Done(len(dst) + 1) })
		r.Quit(0)
	})
	iface.Recv(make([]byte, 16))
	r.Run(context.Background())
}
