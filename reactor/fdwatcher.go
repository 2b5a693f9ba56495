package reactor

// FDEvents is a bitmask of the readiness conditions spec.md §3 describes a
// file-descriptor watcher as tracking: "readable/writable/error/accept/
// connected depending on socket kind." Accept-readiness and connect-
// completion are not distinct OS-level poll bits; by convention,
// EventAccept is an alias of EventRead (a listening
// socket becomes readable when a connection is pending) and EventConnected
// is an alias of EventWrite (a connecting socket becomes writable when the
// handshake completes or fails).
type FDEvents uint32

const (
	EventRead FDEvents = 1 << iota
	EventWrite
	EventError
	EventHangup

	EventAccept    = EventRead
	EventConnected = EventWrite
)

// ready is a single dispatched readiness notification, used internally by
// the platform poller.
type ready struct {
	fd     int
	events FDEvents
}

// FDWatcher owns one descriptor's requested-events mask and handler
// (spec.md §3). Registration with Reactor.RegisterFD is required before
// events may be requested; SetEvents changes the mask; Deregister removes
// it, guaranteeing the handler will not be invoked thereafter (spec.md
// §4.1: "Cancellation of a timer or watcher unregisters synchronously").
type FDWatcher struct {
	r          *Reactor
	fd         int
	events     FDEvents
	handler    func(FDEvents)
	registered bool
}

// RegisterFD registers fd for events, returning a handle used to adjust or
// remove the registration. Registration may fail under resource
// exhaustion (spec.md §7 category 4); on failure no watcher is installed.
func (r *Reactor) RegisterFD(fd int, events FDEvents, handler func(FDEvents)) (*FDWatcher, error) {
	if handler == nil {
		panic("reactor: FDWatcher handler must not be nil")
	}
	if _, exists := r.fds[fd]; exists {
		return nil, ErrFDAlreadyRegistered
	}
	if err := r.poller.add(fd, events); err != nil {
		return nil, err
	}
	w := &FDWatcher{r: r, fd: fd, events: events, handler: handler, registered: true}
	r.fds[fd] = w
	return w, nil
}

// SetEvents updates the requested-events mask for an already-registered
// watcher.
func (w *FDWatcher) SetEvents(events FDEvents) error {
	if !w.registered {
		panic("reactor: SetEvents called on a deregistered FDWatcher")
	}
	if err := w.r.poller.modify(w.fd, events); err != nil {
		return err
	}
	w.events = events
	return nil
}

// Events returns the currently requested mask.
func (w *FDWatcher) Events() FDEvents { return w.events }

// FD returns the underlying file descriptor.
func (w *FDWatcher) FD() int { return w.fd }

// Deregister removes the watcher. After Deregister returns, the handler is
// guaranteed never to be invoked again.
func (w *FDWatcher) Deregister() error {
	if !w.registered {
		return nil
	}
	w.registered = false
	delete(w.r.fds, w.fd)
	return w.r.poller.remove(w.fd)
}
