package workdispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/go-microbatch"
	"github.com/stretchr/testify/require"
)

// TestDispatcherDeliversResult checks that work submitted to the
// dispatcher is computed and its result delivered to handlerDone from
// within Reactor.Run, which is the only place handlerDone is ever allowed
// to call back into reactor-owned state.
func TestDispatcherDeliversResult(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	d := New(r, &microbatch.BatcherConfig{MaxSize: 1, FlushInterval: 5 * time.Millisecond})
	defer d.Close()

	var result any
	d.Submit(
		func() any { return 21 * 2 },
		func(v any) {
			result = v
			r.Quit(0)
		},
	)

	// Safety net: the dispatcher's worker is off-thread, so without this
	// the test would hang forever if delivery were ever lost.
	r.NewTimer(func() { r.Quit(0) }).Set(time.Second)

	r.Run(context.Background())

	require.Equal(t, 42, result)
}

// TestWorkItemFreeSuppressesDelivery checks that Free, called immediately
// after Submit, prevents handlerDone from ever firing.
func TestWorkItemFreeSuppressesDelivery(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	d := New(r, &microbatch.BatcherConfig{MaxSize: 1, FlushInterval: 5 * time.Millisecond})
	defer d.Close()

	var delivered atomic.Bool
	it := d.Submit(
		func() any { return 1 },
		func(any) { delivered.Store(true) },
	)
	it.Free()

	r.NewTimer(func() { r.Quit(0) }).Set(20 * time.Millisecond)
	r.Run(context.Background())

	require.False(t, delivered.Load())
}
