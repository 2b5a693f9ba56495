// Package flowlog provides the package-level structured logging glue of
// the flow framework. Within the module, reactor (poll failures) and
// flowstats (rate-budget overruns) log through it, as does cmd/flowdemo;
// socketio, the queues, inactivity and fragmentproto do not call it
// directly (the queues and inactivity log only through an attached
// flowstats monitor).
//
// The design mirrors the teacher's package-level global-logger pattern
// (logging is an infrastructure cross-cutting concern; every node in a
// pipeline shares the same logging backend): a single process-wide
// *logiface.Logger[*stumpy.Event] is installed with SetLogger, and every
// caller logs through Default(). Until SetLogger is called, logging is
// disabled (LevelDisabled), so the framework is silent by default and pays
// no allocation cost for unused log fields.
package flowlog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Category identifies which flow-framework subsystem produced a log entry.
// Mirrors the teacher's LogEntry.Category convention, generalized from
// eventloop's {timer, promise, microtask, poll, shutdown} to this module's
// node kinds.
type Category string

const (
	CategoryReactor    Category = "reactor"
	CategorySocket     Category = "socket"
	CategoryQueue      Category = "queue"
	CategoryFragment   Category = "fragment"
	CategoryMonitor    Category = "monitor"
	CategoryDispatcher Category = "dispatcher"
	CategorySignal     Category = "signal"
)

var (
	mu  sync.RWMutex
	log = stumpy.L.New(
		stumpy.L.WithStumpy(),
		logiface.WithLevel[*stumpy.Event](logiface.LevelDisabled),
	)
)

// SetLogger installs the process-wide logger used by every flow-framework
// package. Passing nil restores the silent default.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = stumpy.L.New(
			stumpy.L.WithStumpy(),
			logiface.WithLevel[*stumpy.Event](logiface.LevelDisabled),
		)
	}
	log = l
}

// Default returns the currently installed logger.
func Default() *logiface.Logger[*stumpy.Event] {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Err logs a recoverable error delivered via a node's error-domain callback.
func Err(cat Category, node string, err error, msg string) {
	Default().Err().Str("category", string(cat)).Str("node", node).Err(err).Log(msg)
}

// Warn logs a non-fatal anomaly (e.g. a queue preemption degraded to
// run-to-completion, a fair-queue flow removed without cancel support).
func Warn(cat Category, node string, msg string) {
	Default().Warning().Str("category", string(cat)).Str("node", node).Log(msg)
}

// Info logs a routine lifecycle event (node construction, pipeline stage
// transitions) — the level a caller enables to narrate normal operation
// without the volume of Debug.
func Info(cat Category, node string, msg string) {
	Default().Info().Str("category", string(cat)).Str("node", node).Log(msg)
}

// Debug logs fine-grained diagnostics (scheduling decisions, timer
// rearm/fire, FD readiness) useful when developing against the framework.
func Debug(cat Category, node string, msg string) {
	Default().Debug().Str("category", string(cat)).Str("node", node).Log(msg)
}
