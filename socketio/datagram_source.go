package socketio

import (
	"github.com/joeycumines/badvpn-flow/debugobject"
	"github.com/joeycumines/badvpn-flow/packetiface"
	"github.com/joeycumines/badvpn-flow/reactor"
	"golang.org/x/sys/unix"
)

// DatagramSource adapts the read half of a non-blocking datagram socket to
// a PacketRecvInterface (spec.md §4.7), recording the sender address of
// the most recently received packet.
type DatagramSource struct {
	debug debugobject.Object
	err   debugobject.Error

	fd      int
	watcher *reactor.FDWatcher

	Output *packetiface.PacketRecvInterface

	lastAddr unix.Sockaddr
	pending  []byte
	waiting  bool
	onFatal  func(error)
}

// NewDatagramSource wraps fd (already non-blocking) as a source of
// packets up to mtu bytes.
func NewDatagramSource(r *reactor.Reactor, fd int, mtu int, onFatal func(error)) *DatagramSource {
	s := &DatagramSource{fd: fd, onFatal: onFatal}
	s.debug.Init("DatagramSource")
	s.Output = packetiface.NewPacketRecvInterface(r.Pending(), mtu, s.onRecv)
	w, err := r.RegisterFD(fd, 0, s.onReady)
	if err != nil {
		panic(err)
	}
	s.watcher = w
	return s
}

// LastAddr returns the sender address of the most recently completed
// Recv, or nil if the socket is connected / unaddressed.
func (s *DatagramSource) LastAddr() unix.Sockaddr {
	s.debug.Access()
	return s.lastAddr
}

func (s *DatagramSource) onRecv(dst []byte) {
	if s.err.IsSet() {
		return
	}
	s.tryRead(dst)
}

func (s *DatagramSource) tryRead(dst []byte) {
	n, from, err := unix.Recvfrom(s.fd, dst, 0)
	switch {
	case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
		s.pending = dst
		s.waiting = true
		_ = s.watcher.SetEvents(reactor.EventRead | reactor.EventError)
	case err != nil:
		s.fail(err)
	default:
		s.lastAddr = from
		s.Output.Done(n)
	}
}

func (s *DatagramSource) onReady(ev reactor.FDEvents) {
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

func (s *DatagramSource) fail(err error) {
	if s.err.IsSet() {
		return
	}
	s.err.Set(err)
	if s.onFatal != nil {
		s.onFatal(err)
	}
}

// Free releases the watcher and owned interface.
func (s *DatagramSource) Free() {
	s.debug.Access()
	_ = s.watcher.Deregister()
	s.Output.Free()
	s.debug.Free()
}
