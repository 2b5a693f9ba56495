package socketio

import (
	"context"
	"testing"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestStreamSinkSourceRoundTrip(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	sink := NewStreamSink(r, fds[0], func(err error) { t.Fatalf("sink fatal: %v", err) })
	defer sink.Free()
	source := NewStreamSource(r, fds[1], func(err error) { t.Fatalf("source fatal: %v", err) })
	defer source.Free()

	var sendDone bool
	sink.Output.SetHandlerDone(func(n int) {
		sendDone = true
		require.Equal(t, 5, n)
	})
	sink.Output.Send([]byte("hello"))

	buf := make([]byte, 16)
	source.Output.SetHandlerDone(func(n int) {
		require.Equal(t, "hello", string(buf[:n]))
		r.Quit(0)
	})
	source.Output.Recv(buf)

	r.Run(context.Background())
	require.True(t, sendDone)
}

func TestStreamSourceReportsPeerClosed(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])

	var fatal error
	source := NewStreamSource(r, fds[1], func(err error) {
		fatal = err
		r.Quit(0)
	})
	defer source.Free()

	unix.Close(fds[0]) // triggers orderly close on the other end

	buf := make([]byte, 16)
	source.Output.SetHandlerDone(func(n int) { t.Fatal("should not complete normally") })
	source.Output.Recv(buf)

	r.Run(context.Background())
	require.ErrorIs(t, fatal, ErrPeerClosed)
}

func TestDatagramSinkSourceRoundTrip(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	sink := NewDatagramSink(r, fds[0], 32, func(err error) { t.Fatalf("sink fatal: %v", err) })
	defer sink.Free()
	source := NewDatagramSource(r, fds[1], 32, func(err error) { t.Fatalf("source fatal: %v", err) })
	defer source.Free()

	sink.Output.SetHandlerDone(func() {})
	sink.Output.Send([]byte("packet"))

	buf := make([]byte, 32)
	source.Output.SetHandlerDone(func(n int) {
		require.Equal(t, "packet", string(buf[:n]))
		r.Quit(0)
	})
	source.Output.Recv(buf)

	r.Run(context.Background())
}
