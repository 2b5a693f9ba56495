package packetiface

import (
	"context"
	"testing"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
)

func TestPacketPassInterfaceSendDoneRoundTrip(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var received []byte
	var doneCalled bool
	var iface *PacketPassInterface
	iface = NewPacketPassInterface(r.Pending(), 1500, func(data []byte) {
		received = append([]byte(nil), data...)
		iface.Done()
	})
	iface.SetHandlerDone(func() {
		doneCalled = true
		r.Quit(0)
	})

	iface.Send([]byte("hello"))
	r.Run(context.Background())

	require.True(t, doneCalled)
	require.Equal(t, []byte("hello"), received)
	iface.Free()
}

func TestPacketPassInterfaceSendMTUViolationPanics(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	i := NewPacketPassInterface(r.Pending(), 4, func(data []byte) {})
	require.Panics(t, func() { i.Send([]byte("toolong")) })
}

func TestPacketPassInterfaceDoubleSendPanics(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	i := NewPacketPassInterface(r.Pending(), 16, func(data []byte) {})
	i.Send([]byte("a"))
	require.Panics(t, func() { i.Send([]byte("b")) })
}

func TestPacketPassInterfaceCancel(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var canceled bool
	var iface *PacketPassInterface
	iface = NewPacketPassInterface(r.Pending(), 16, func(data []byte) {
		// Left busy until RequestCancel forces completion.
	})
	iface.EnableCancel(func() {
		canceled = true
		iface.Done()
	})
	iface.SetHandlerDone(func() { r.Quit(0) })

	iface.Send([]byte("a"))
	// Queued after the Send's own operation job, so it observes the busy
	// state before requesting cancellation.
	r.Pending().NewJob(func() {
		iface.RequestCancel()
	}).Set()

	r.Run(context.Background())
	require.True(t, canceled)
}
