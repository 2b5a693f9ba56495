// Package signalbridge implements BSignal/BUnixSignal (spec.md §4.17):
// translating OS signals into reactor-thread callbacks. Grounded on the
// standard os/signal.Notify idiom (an internal channel fed by the runtime's
// signal machinery — the "internal semaphore" variant of spec.md §4.17,
// as opposed to reading a signalfd descriptor directly), relayed across
// the single cross-thread boundary via Reactor.SubmitFromOtherThread.
package signalbridge

import (
	"os"
	"os/signal"

	"github.com/joeycumines/badvpn-flow/reactor"
)

// Bridge relays a fixed set of signals to handler, invoked on the reactor
// thread in arrival order: one handler call per signal the relay goroutine
// receives from os/signal.
type Bridge struct {
	r       *reactor.Reactor
	sigCh   chan os.Signal
	stopCh  chan struct{}
	handler func(os.Signal)
}

// New starts relaying sigs to handler. The relay goroutine runs until
// Close; handler is always invoked from within Reactor.Run.
func New(r *reactor.Reactor, handler func(os.Signal), sigs ...os.Signal) *Bridge {
	if handler == nil {
		panic("signalbridge: New: handler must not be nil")
	}
	b := &Bridge{
		r:       r,
		sigCh:   make(chan os.Signal, 128),
		stopCh:  make(chan struct{}),
		handler: handler,
	}
	signal.Notify(b.sigCh, sigs...)
	go b.loop()
	return b
}

func (b *Bridge) loop() {
	for {
		select {
		case <-b.stopCh:
			return
		case sig := <-b.sigCh:
			b.r.SubmitFromOtherThread(func() {
				b.handler(sig)
			})
		}
	}
}

// Close stops relaying new signals and terminates the relay goroutine. A
// signal already in flight to the reactor may still be delivered.
func (b *Bridge) Close() {
	signal.Stop(b.sigCh)
	close(b.stopCh)
}
