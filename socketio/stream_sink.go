package socketio

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/joeycumines/badvpn-flow/streamiface"
	"golang.org/x/sys/unix"
)

// StreamSink adapts the write half of a non-blocking stream socket
// descriptor to a StreamPassInterface, honoring short-write semantics
// (spec.md §4.7).
type StreamSink struct {
	debug debugobject.Object
	err   debugobject.Error

	fd      int
	watcher *reactor.FDWatcher

	Output *streamiface.StreamPassInterface

	pending  []byte
	waiting  bool
	onFatal  func(error)
}

// NewStreamSink wraps fd (which must already be non-blocking) as a sink.
func NewStreamSink(r *reactor.Reactor, fd int, onFatal func(error)) *StreamSink {
	s := &StreamSink{fd: fd, onFatal: onFatal}
	s.debug.Init("StreamSink")
	s.Output = streamiface.NewStreamPassInterface(r.Pending(), s.onSend)
	w, err := r.RegisterFD(fd, 0, s.onReady)
	if err != nil {
		panic(err)
	}
	s.watcher = w
	return s
}

func (s *StreamSink) onSend(data []byte) {
	if s.err.IsSet() {
		return
	}
	s.tryWrite(data)
}

func (s *StreamSink) tryWrite(data []byte) {
	n, err := unix.Write(s.fd, data)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
		s.pending = data
		s.waiting = true
		_ = s.watcher.SetEvents(reactor.EventWrite | reactor.EventError)
	case err != nil:
		s.fail(err)
	case n == 0:
		s.pending = data
		s.waiting = true
		_ = s.watcher.SetEvents(reactor.EventWrite | reactor.EventError)
	default:
		s.Output.Done(n)
	}
}

func (s *StreamSink) onReady(ev reactor.FDEvents) {
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
	data := s.pending
	s.pending = nil
	s.tryWrite(data)
}

func (s *StreamSink) fail(err error) {
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
func (s *StreamSink) Free() {
	s.debug.Access()
	_ = s.watcher.Deregister()
	s.Output.Free()
	s.debug.Free()
}

func unixSocketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v == 0 {
		return nil
	}
	return unix.Errno(v)
}
