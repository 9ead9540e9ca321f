package fiber

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneshot_SignalWakesWaiters(t *testing.T) {
	o := NewOneshot()
	var got any
	o.AddWaiter(func(v any) { got = v })
	require.Nil(t, got)
	o.Signal("done")
	require.Equal(t, "done", got)
}

func TestOneshot_LateWaiterRunsImmediately(t *testing.T) {
	o := NewOneshot()
	o.Signal(42)
	var got any
	o.AddWaiter(func(v any) { got = v })
	require.Equal(t, 42, got)
}

func TestOneshot_SecondSignalIgnored(t *testing.T) {
	o := NewOneshot()
	o.Signal("first")
	o.Signal("second")
	require.Equal(t, "first", o.Value())
}

func TestOneshot_CancelledWaiterDoesNotRun(t *testing.T) {
	o := NewOneshot()
	ran := false
	cancel := o.AddWaiter(func(any) { ran = true })
	cancel()
	o.Signal(nil)
	require.False(t, ran)
}
