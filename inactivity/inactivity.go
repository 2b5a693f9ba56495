// Package inactivity implements PacketPassInactivityMonitor (spec.md
// §4.13): a transparent pass-through that arms a timer on every idle
// interval and fires a handler if no traffic crosses it within the
// configured duration, re-arming afterwards. Used to drive keepalives and
// detect silence.
package inactivity

import (
	"time"

	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/flowstats"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
)

// Monitor wraps a downstream PacketPassInterface, exposing Input of the
// same MTU. The timer is disarmed for the duration of each Send and
// re-armed the instant it completes; an expiry invokes handler and rearms
// immediately, so repeated silence fires the handler once per interval.
type Monitor struct {
	debug debugobject.Object

	output   *packetiface.PacketPassInterface
	Input    *packetiface.PacketPassInterface
	timer    *reactor.Timer
	interval time.Duration
	handler  func()

	stats *flowstats.Monitor
}

// Option configures optional Monitor behavior at construction.
type Option func(*Monitor)

// WithStats attaches a flowstats.Monitor that records every Send crossing
// this monitor, keyed by the monitor's own handle. Diagnostics only.
func WithStats(s *flowstats.Monitor) Option {
	return func(m *Monitor) { m.stats = s }
}

// New wraps output (not owned by the monitor) with an inactivity timer of
// the given interval, invoking handler on every expiry. The timer starts
// armed immediately.
func New(r *reactor.Reactor, output *packetiface.PacketPassInterface, interval time.Duration, handler func(), opts ...Option) *Monitor {
	if handler == nil {
		panic("inactivity: handler must not be nil")
	}
	m := &Monitor{output: output, interval: interval, handler: handler}
	for _, opt := range opts {
		opt(m)
	}
	m.debug.Init("InactivityMonitor")
	m.Input = packetiface.NewPacketPassInterface(r.Pending(), output.MTU(), m.onSend)
	m.output.SetHandlerDone(m.onOutputDone)
	if output.HasCancel() {
		m.Input.EnableCancel(output.RequestCancel)
	}
	m.timer = r.NewTimer(m.onTimer)
	m.rearm()
	return m
}

func (m *Monitor) rearm() {
	if m.interval <= 0 {
		m.timer.Set(0)
		return
	}
	m.timer.Set(m.interval)
}

func (m *Monitor) onSend(data []byte) {
	m.timer.Unset()
	if m.stats != nil {
		m.stats.Record(m, len(data))
	}
	m.output.Send(data)
}

func (m *Monitor) onOutputDone() {
	m.rearm()
	m.Input.Done()
}

func (m *Monitor) onTimer() {
	m.handler()
	m.rearm()
}

// ForceExpiry arms the timer to fire immediately, invoking handler on the
// next reactor iteration even though no traffic has passed.
func (m *Monitor) ForceExpiry() {
	m.timer.Set(0)
}

// Free releases the monitor's timer and owned interface. The wrapped
// output is the caller's responsibility.
func (m *Monitor) Free() {
	m.debug.Access()
	m.timer.Unset()
	m.Input.Free()
	m.debug.Free()
}
