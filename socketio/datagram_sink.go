package socketio

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
	"golang.org/x/sys/unix"
)

// DatagramSink adapts the write half of a non-blocking datagram socket to
// a PacketPassInterface (spec.md §4.7). Each Send may optionally be
// addressed by calling SetNextAddr beforehand; with no address set, the
// sink assumes a connected socket and uses plain Write. A short write is
// reported as ErrSizeMismatch, since a datagram write is expected to be
// atomic.
type DatagramSink struct {
	debug debugobject.Object
	err   debugobject.Error

	fd      int
	watcher *reactor.FDWatcher

	Output *packetiface.PacketPassInterface

	nextAddr unix.Sockaddr
	pending  []byte
	waiting  bool
	onFatal  func(error)
}

// NewDatagramSink wraps fd (already non-blocking) as a sink of packets up
// to mtu bytes.
func NewDatagramSink(r *reactor.Reactor, fd int, mtu int, onFatal func(error)) *DatagramSink {
	s := &DatagramSink{fd: fd, onFatal: onFatal}
	s.debug.Init("DatagramSink")
	s.Output = packetiface.NewPacketPassInterface(r.Pending(), mtu, s.onSend)
	w, err := r.RegisterFD(fd, 0, s.onReady)
	if err != nil {
		panic(err)
	}
	s.watcher = w
	return s
}

// SetNextAddr addresses the next Send to addr; cleared after that Send
// completes or fails. Pass nil to use plain Write on a connected socket.
func (s *DatagramSink) SetNextAddr(addr unix.Sockaddr) {
	s.debug.Access()
	s.nextAddr = addr
}

func (s *DatagramSink) onSend(data []byte) {
	if s.err.IsSet() {
		return
	}
	s.tryWrite(data)
}

func (s *DatagramSink) tryWrite(data []byte) {
	var err error
	n := len(data)
	if s.nextAddr != nil {
		err = unix.Sendto(s.fd, data, 0, s.nextAddr)
	} else {
		n, err = unix.Write(s.fd, data)
	}
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
		s.pending = data
		s.waiting = true
		_ = s.watcher.SetEvents(reactor.EventWrite | reactor.EventError)
	case err != nil:
		s.fail(err)
	case n < len(data):
		s.fail(ErrSizeMismatch)
	default:
		s.nextAddr = nil
		s.Output.Done()
	}
}

func (s *DatagramSink) onReady(ev reactor.FDEvents) {
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

func (s *DatagramSink) fail(err error) {
	if s.err.IsSet() {
		return
	}
	s.nextAddr = nil
	s.err.Set(err)
	if s.onFatal != nil {
		s.onFatal(err)
	}
}

// Free releases the watcher and owned interface.
func (s *DatagramSink) Free() {
	s.debug.Access()
	_ = s.watcher.Deregister()
	s.Output.Free()
	s.debug.Free()
}
