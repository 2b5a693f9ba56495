package eventlock

import (
	"context"
	"testing"

	"github.com/joeycumines/badvpn-flow/reactor"
	"github.com/stretchr/testify/require"
)

// TestEventLockFIFOAdmission exercises spec.md §4.15: waiters are admitted
// strictly in arrival order, one at a time.
func TestEventLockFIFOAdmission(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	l := New(r.Pending())
	defer l.Free()

	var order []string
	var a, b, c *Waiter
	a = l.NewWaiter(func() {
		order = append(order, "a")
		a.Release()
	})
	b = l.NewWaiter(func() {
		order = append(order, "b")
		b.Release()
		r.Quit(0)
	})
	c = l.NewWaiter(func() {
		order = append(order, "c")
		c.Release()
	})
	defer a.Free()
	defer b.Free()
	defer c.Free()

	c.Wait()
	a.Wait()
	b.Wait()

	r.Run(context.Background())

	require.Equal(t, []string{"c", "a", "b"}, order)
}

// TestEventLockHoldsUntilRelease exercises single-holder semantics: a
// second waiter is not admitted until the first explicitly releases.
func TestEventLockHoldsUntilRelease(t *testing.T) {
	r, err := reactor.New()
	require.NoError(t, err)
	defer r.Close()

	l := New(r.Pending())
	defer l.Free()

	var secondAdmitted bool
	var first, second *Waiter
	first = l.NewWaiter(func() {
		require.False(t, secondAdmitted)
		r.Pending().NewJob(func() {
			first.Release()
		}).Set()
	})
	second = l.NewWaiter(func() {
		secondAdmitted = true
		second.Release()
		r.Quit(0)
	})
	defer first.Free()
	defer second.Free()

	first.Wait()
	second.Wait()

	r.Run(context.Background())

	require.True(t, secondAdmitted)
}
