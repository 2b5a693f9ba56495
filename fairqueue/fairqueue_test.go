package fairqueue

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/badvpn-flow/flowlog"
	"github.com/joeycumines/badvpn-flow/flowstats"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
)

// TestFairQueueEvenSplit exercises spec.md §8 scenario 3: two continuously
// backlogged flows submitting equal-size packets into a synchronously
// draining queue converge to an exact 5/5 split after 10 packets.
func TestFairQueueEvenSplit(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var output *packetiface.PacketPassInterface
	output = packetiface.NewPacketPassInterface(r.Pending(), 100, func(data []byte) {
		output.Done()
	})

	q := New(r.Pending(), output)
	flowA := q.NewFlow(100)
	flowB := q.NewFlow(100)

	pkt := make([]byte, 100)

	var totalA, totalB, total int
	var done bool

	flowA.Input.SetHandlerDone(func() {
		totalA++
		total++
		if total >= 10 {
			if !done {
				done = true
				r.Quit(0)
			}
			return
		}
		flowA.Input.Send(pkt)
	})
	flowB.Input.SetHandlerDone(func() {
		totalB++
		total++
		if total >= 10 {
			if !done {
				done = true
				r.Quit(0)
			}
			return
		}
		flowB.Input.Send(pkt)
	})

	flowA.Input.Send(pkt)
	flowB.Input.Send(pkt)

	r.Run(context.Background())

	require.Equal(t, 10, total)
	require.Equal(t, 5, totalA)
	require.Equal(t, 5, totalB)
}

func TestFairQueueNewFlowRejectsOversizeMTU(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	output := packetiface.NewPacketPassInterface(r.Pending(), 50, func(data []byte) {})
	q := New(r.Pending(), output)
	require.Panics(t, func() { q.NewFlow(51) })
}

// TestFairQueueRequestFreeWhileWaiting frees a flow that has a Send queued
// but not yet scheduled downstream (another flow is busy); the queued
// data is dropped and the flow's own Done still fires, per the
// "flow merely waiting" case of spec.md §4.11's removal rule.
func TestFairQueueRequestFreeWhileWaiting(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var output *packetiface.PacketPassInterface
	output = packetiface.NewPacketPassInterface(r.Pending(), 10, func(data []byte) {
		// Never completed: busy's send stays outstanding downstream for
		// the life of the test, so waiting never gets scheduled.
	})

	q := New(r.Pending(), output)
	busy := q.NewFlow(10)
	waiting := q.NewFlow(10)

	var released bool
	waiting.Input.SetHandlerDone(func() {
		released = true
		r.Quit(0)
	})

	busy.Input.Send([]byte("xxxxxxxxxx"))
	waiting.Input.Send([]byte("yyyyyyyyyy"))

	r.Pending().NewJob(func() {
		waiting.RequestFree()
	}).Set()

	r.Run(context.Background())

	require.True(t, released)
}

// TestFairQueuePreemptsBusyFlowForLowerDeficit exercises spec.md §4.11's
// preemption path: once busy has an accrued deficit from a prior completed
// send, a freshly-arriving flow with a lower deficit triggers
// RequestCancel on the (cancel-capable) downstream while busy's second send
// is still outstanding. The cancelled send is credited and completed like
// any other Done — not resent — and the queue then schedules arriving.
func TestFairQueuePreemptsBusyFlowForLowerDeficit(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var canceled bool
	var order []string
	var calls int

	var arriving *Flow
	var output *packetiface.PacketPassInterface
	output = packetiface.NewPacketPassInterface(r.Pending(), 16, func(data []byte) {
		calls++
		order = append(order, string(data))
		switch calls {
		case 1:
			output.Done()
		case 2:
			// Left busy: trigger arriving's Send now, while this one is
			// still outstanding, so maybePreempt sees busy occupying output.
			arriving.Input.Send([]byte("new"))
		case 3:
			output.Done()
		}
	})
	output.EnableCancel(func() {
		canceled = true
		output.Done()
	})

	q := New(r.Pending(), output)
	busy := q.NewFlow(16)
	arriving = q.NewFlow(16)

	var busyDone, arrivingDone bool
	busy.Input.SetHandlerDone(func() {
		if !busyDone {
			busyDone = true
			busy.Input.Send([]byte("two"))
			return
		}
	})
	arriving.Input.SetHandlerDone(func() {
		arrivingDone = true
		r.Quit(0)
	})

	busy.Input.Send([]byte("one"))

	r.Run(context.Background())

	require.True(t, canceled)
	require.True(t, busyDone)
	require.True(t, arrivingDone)
	require.Equal(t, []string{"one", "two", "new"}, order)
	require.EqualValues(t, len("one")+len("two"), busy.deficit)
}

// TestFairQueueWithStatsRecordsSends checks that a WithStats-attached
// flowstats.Monitor observes every send a flow makes, without taking part
// in scheduling.
func TestFairQueueWithStatsRecordsSends(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	var output *packetiface.PacketPassInterface
	output = packetiface.NewPacketPassInterface(r.Pending(), 10, func(data []byte) {
		output.Done()
	})

	stats := flowstats.New(flowlog.CategoryQueue, "test", flowstats.Config{
		PacketRates: map[time.Duration]int{time.Minute: 1},
	})
	q := New(r.Pending(), output, WithStats(stats))
	f := q.NewFlow(10)

	f.Input.SetHandlerDone(func() { r.Quit(0) })
	f.Input.Send([]byte("0123456789"))

	r.Run(context.Background())

	result := stats.Record(f, 0)
	require.False(t, result.WithinPacketRate)
}
