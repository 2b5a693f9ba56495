//go:build !linux

package reactor

import (
	"errors"
	"time"
)

// Only Linux/epoll is implemented, matching BadVPN's own Linux-centric
// deployment target (TAP devices, epoll-driven daemons). On other
// platforms newPoller fails, so reactor.New returns an error.
type epollPoller struct{}

func newPoller() (*epollPoller, error) {
	return nil, errors.New("reactor: no poller implementation for this platform")
}

func (p *epollPoller) close() error                                 { return nil }
func (p *epollPoller) add(fd int, events FDEvents) error             { return errUnsupported }
func (p *epollPoller) modify(fd int, events FDEvents) error          { return errUnsupported }
func (p *epollPoller) remove(fd int) error                           { return errUnsupported }
func (p *epollPoller) wait(timeout time.Duration) ([]ready, error)   { return nil, errUnsupported }

var errUnsupported = errors.New("reactor: unsupported platform")
