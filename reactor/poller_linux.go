//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller adapts epoll to the internal poller interface. Grounded on
// the teacher's FastPoller (eventloop/poller_linux.go): same EpollCreate1/
// EpollCtl/EpollWait calls and the same read/write/error/hangup bit
// mapping, simplified because this reactor is single-threaded cooperative
// (spec.md Non-goals) — no fd-array direct-indexing, no RWMutex, no
// version-counter staleness guard, all of which exist in the teacher only
// to make registration safe under concurrent access from other goroutines,
// which this module's contract forbids.
type epollPoller struct {
	epfd     int
	eventBuf [128]unix.EpollEvent
}

func newPoller() (*epollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd}, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}

func (p *epollPoller) add(fd int, events FDEvents) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, events FDEvents) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks up to timeout (negative means indefinite) and returns the
// ready descriptors. spec.md §4.1 step 5.
func (p *epollPoller) wait(timeout time.Duration) ([]ready, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]ready, 0, n)
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		out = append(out, ready{fd: int(ev.Fd), events: epollToEvents(ev.Events)})
	}
	return out, nil
}

func eventsToEpoll(events FDEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) FDEvents {
	var events FDEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
