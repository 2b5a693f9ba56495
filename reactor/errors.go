package reactor

import "errors"

// Standard errors, following the teacher's convention (eventloop/loop.go)
// of a small set of sentinel errors for reactor lifecycle misuse.
var (
	// ErrAlreadyRunning is returned by Run when called on a reactor that is
	// already running.
	ErrAlreadyRunning = errors.New("reactor: already running")

	// ErrFDAlreadyRegistered is returned by RegisterFD for a descriptor that
	// already has a watcher.
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")

	// ErrReentrantRun is returned by Run when called from within the
	// reactor's own dispatch loop — spec.md §5 forbids this; a handler must
	// never re-enter the reactor synchronously.
	ErrReentrantRun = errors.New("reactor: cannot call Run from within the reactor")
)
