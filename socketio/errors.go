// Package socketio adapts OS sockets to the four flow interfaces
// (spec.md §4.7): each adapter owns one half-duplex direction of a socket
// plus a reactor file-descriptor watcher. A non-blocking syscall is
// attempted synchronously from the operation call; on would-block (or an
// interrupted call, EINTR) the
// adapter stores the pending buffer, enables the corresponding readiness
// bit, and retries on the next ready event. Any other error, or an
// orderly close on a stream source, latches the adapter into a fatal
// error state reported once via a caller-supplied callback — the caller
// must free the adapter afterward.
package socketio

import "errors"

var (
	// ErrPeerClosed is reported by a stream source on an orderly close
	// (a zero-length, non-error read).
	ErrPeerClosed = errors.New("socketio: peer closed the connection")
	// ErrSizeMismatch is reported by a datagram sink when the OS accepted
	// fewer bytes than the offered packet — a datagram write is expected
	// to be atomic, so a short write indicates a transport-level problem
	// rather than something safely retryable.
	ErrSizeMismatch = errors.New("socketio: datagram write accepted fewer bytes than offered")
)
