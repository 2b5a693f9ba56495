package reactor

// State is the reactor's run state, per spec.md §3: "at any moment, the
// reactor is in exactly one of three states — idle, blocked waiting for
// I/O/timers, or dispatching one callback."
//
// Unlike the teacher's FastState (a lock-free, atomically-CAS'd state used
// to coordinate multiple goroutines racing to submit work), this reactor is
// single-threaded cooperative per spec.md's Non-goals, so State is a plain
// field mutated only from the dispatch loop itself — no atomics needed.
type State int

const (
	// StateIdle means no callback is executing and the reactor is not
	// blocked: Run has not been entered, has returned, or is between steps
	// of its loop.
	StateIdle State = iota
	// StateDispatching means a callback (timer, FD, or pending job) is
	// currently executing.
	StateDispatching
	// StateBlocked means the reactor is blocked in the OS readiness
	// primitive, waiting for I/O or the nearest timer deadline.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}
