package debugobject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectLifecycle(t *testing.T) {
	var o Object
	assert.False(t, o.Alive())
	assert.Panics(t, func() { o.Access() })

	o.Init("Thing")
	assert.True(t, o.Alive())
	assert.NotPanics(t, func() { o.Access() })

	assert.Panics(t, func() { o.Init("Thing") })

	o.Free()
	assert.False(t, o.Alive())
	assert.Panics(t, func() { o.Access() })
	assert.Panics(t, func() { o.Free() })
}

func TestCounter(t *testing.T) {
	var c Counter
	c.AssertZero("Thing")

	c.Inc()
	c.Inc()
	require.EqualValues(t, 2, c.Load())
	assert.Panics(t, func() { c.AssertZero("Thing") })

	c.Dec()
	c.Dec()
	c.AssertZero("Thing")
}

func TestError(t *testing.T) {
	var e Error
	assert.False(t, e.IsSet())
	assert.NotPanics(t, func() { e.Access("Send") })

	cause := errors.New("peer closed")
	e.Set(cause)
	assert.True(t, e.IsSet())
	assert.Same(t, cause, e.Err())

	assert.Panics(t, func() { e.Access("Send") })
	assert.Panics(t, func() { e.Set(cause) })
}

func TestInReentrancy(t *testing.T) {
	var in In
	exit := in.Enter("Dispatch")
	assert.Panics(t, func() {
		in.Enter("Dispatch")
	})
	exit()
	assert.NotPanics(t, func() {
		exit2 := in.Enter("Dispatch")
		exit2()
	})
}
