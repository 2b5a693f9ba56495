// Package flowstats implements the supplemented per-flow rate accounting
// named in SPEC_FULL.md §11: packet and byte rates tracked per flow over
// one or more sliding windows, built directly on
// github.com/joeycumines/go-catrate's Limiter. A Limiter's native
// operation — Allow — answers "has this category stayed within its
// configured budget", which is exactly the shape of a rate-over-window
// query; flowstats wraps one Limiter for packet counts and one for byte
// counts (bytes quantized into fixed-size units, since catrate counts
// discrete events rather than weighted magnitudes) and reports both as a
// single Result.
//
// Monitor is an optional observer: fairqueue, priorityqueue, and
// inactivity accept one but never depend on it for correctness — it
// exists purely to surface operational diagnostics through flowlog.
package flowstats

import (
	"time"

	"github.com/joeycumines/badvpn-flow/flowlog"
	"github.com/joeycumines/go-catrate"
)

// defaultByteUnit is the number of bytes folded into a single accounted
// unit when no Config.ByteUnit is given, keeping the per-Record call
// count bounded for MTU-sized packets.
const defaultByteUnit = 64

// Config configures a Monitor's rate windows. Either map may be nil or
// empty to skip tracking that dimension.
type Config struct {
	// PacketRates maps a sliding window duration to the maximum number
	// of packets allowed in it, per flow. See catrate.NewLimiter for the
	// monotonicity requirements across windows.
	PacketRates map[time.Duration]int
	// ByteRates maps a sliding window duration to the maximum number of
	// byte-units (see ByteUnit) allowed in it, per flow.
	ByteRates map[time.Duration]int
	// ByteUnit is the number of bytes folded into one accounted unit.
	// Defaults to 64 if zero or negative.
	ByteUnit int
}

// Monitor tracks packet and byte rates per flow (an arbitrary comparable
// key, typically the owning node's own handle).
type Monitor struct {
	packets  *catrate.Limiter
	bytes    *catrate.Limiter
	byteUnit int

	cat  flowlog.Category
	node string
}

// New constructs a Monitor. cat/node identify the calling subsystem and
// node in diagnostic log lines (flowlog.Warn).
func New(cat flowlog.Category, node string, cfg Config) *Monitor {
	byteUnit := cfg.ByteUnit
	if byteUnit <= 0 {
		byteUnit = defaultByteUnit
	}
	m := &Monitor{byteUnit: byteUnit, cat: cat, node: node}
	if len(cfg.PacketRates) > 0 {
		m.packets = catrate.NewLimiter(cfg.PacketRates)
	}
	if len(cfg.ByteRates) > 0 {
		m.bytes = catrate.NewLimiter(cfg.ByteRates)
	}
	return m
}

// Result reports whether a Record call stayed within every configured
// budget, and the earliest time each exceeded budget reopens (zero value
// if that dimension wasn't exceeded, or isn't tracked).
type Result struct {
	WithinPacketRate  bool
	WithinByteRate    bool
	NextPacketAllowed time.Time
	NextByteAllowed   time.Time
}

// Exceeded reports whether any tracked dimension was over budget.
func (r Result) Exceeded() bool {
	return !r.WithinPacketRate || !r.WithinByteRate
}

// Record registers one packet of n bytes for flow, logging a warning via
// flowlog the first time either dimension goes over budget in a call.
func (m *Monitor) Record(flow any, n int) Result {
	res := Result{WithinPacketRate: true, WithinByteRate: true}

	if m.packets != nil {
		next, ok := m.packets.Allow(flow)
		res.WithinPacketRate = ok
		res.NextPacketAllowed = next
	}

	if m.bytes != nil {
		units := n / m.byteUnit
		if n%m.byteUnit != 0 {
			units++
		}
		if units < 1 {
			units = 1
		}
		for i := 0; i < units; i++ {
			next, ok := m.bytes.Allow(flow)
			if !ok {
				res.WithinByteRate = false
				res.NextByteAllowed = next
			}
		}
	}

	if res.Exceeded() {
		flowlog.Warn(m.cat, m.node, "flow exceeded configured rate budget")
	}

	return res
}
