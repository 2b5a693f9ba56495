package signalbridge

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
)

// TestBridgeDeliversSignal sends SIGUSR1 to the test process itself and
// checks that the handler fires on the reactor thread with the expected
// signal value.
func TestBridgeDeliversSignal(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var got os.Signal
	b := New(r, func(sig os.Signal) {
		got = sig
		r.Quit(0)
	}, syscall.SIGUSR1)
	defer b.Close()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	// Safety net in case signal delivery races ahead of Run starting.
	r.NewTimer(func() { r.Quit(1) }).Set(5 * time.Second)

	code := r.Run(context.Background())

	require.Equal(t, 0, code)
	require.Equal(t, syscall.SIGUSR1, got)
}

func TestBridgeCloseStopsRelay(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	// Independent of the bridge under test: keeps SIGUSR2's disposition
	// away from "terminate the process" for the test's duration, since
	// signal.Stop (called inside b.Close) would otherwise let it revert to
	// default once the bridge's own registration is removed.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGUSR2)
	defer signal.Stop(guard)

	var fired bool
	b := New(r, func(os.Signal) { fired = true }, syscall.SIGUSR2)
	b.Close()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))

	r.NewTimer(func() { r.Quit(0) }).Set(50 * time.Millisecond)
	r.Run(context.Background())

	require.False(t, fired)
}
