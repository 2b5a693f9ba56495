package socketio

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/badvpn-flow/streamiface"
	"golang.org/x/sys/unix"
)

// StreamSource adapts the read half of a non-blocking stream socket
// descriptor to a StreamRecvInterface, reporting an orderly close as
// ErrPeerClosed via the fatal callback (spec.md §4.7).
type StreamSource struct {
	debug debugobject.Object
	err   debugobject.Error

	fd      int
	watcher *reactor.FDWatcher

	Output *streamiface.StreamRecvInterface

	pending []byte
	waiting bool
	onFatal func(error)
}

// NewStreamSource wraps fd (already non-blocking) as a source.
func NewStreamSource(r *reactor.Reactor, fd int, onFatal func(error)) *StreamSource {
	s := &StreamSource{fd: fd, onFatal: onFatal}
	s.debug.Init("StreamSource")
	s.Output = streamiface.NewStreamRecvInterface(r.Pending(), s.onRecv)
	w, err := r.RegisterFD(fd, 0, s.onReady)
	if err != nil {
		panic(err)
	}
	s.watcher = w
	return s
}

func (s *StreamSource) onRecv(dst []byte) {
	if s.err.IsSet() {
		return
	}
	s.tryRead(dst)
}

func (s *StreamSource) tryRead(dst []byte) {
	n, err := unix.Read(s.fd, dst)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
		s.pending = dst
		s.waiting = true
		_ = s.watcher.SetEvents(reactor.EventRead | reactor.EventError)
	case err != nil:
		s.fail(err)
	case n == 0:
		s.fail(ErrPeerClosed)
	default:
		s.Output.Done(n)
	}
}

func (s *StreamSource) onReady(ev reactor.FDEvents) {
	if s.err.IsSet() {
		return
	}
	if ev&reactor.EventError != 0 {
		s.fail(unixSocketError(s.fd))
		return
	}
	if !s.waiting {
		return
	}
	s.waiting = false
	_ = s.watcher.SetEvents(reactor.EventError)
	dst := s.pending
	s.pending = nil
	s.tryRead(dst)
}

func (s *StreamSource) fail(err error) {
	if s.err.IsSet() {
		return
	}
	s.err.Set(err)
	if s.onFatal != nil {
		s.onFatal(err)
	}
}

// Free releases the watcher and owned interface. The descriptor itself is
// the caller's responsibility.
func (s *StreamSource) Free() {
	s.debug.Access()
	_ = s.watcher.Deregister()
	s.Output.Free()
	s.debug.Free()
}
