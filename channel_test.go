package fiber

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannel_RendezvousRequiresBothSides(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	ch := NewChannel(0)

	var received any
	receiverDone := false
	_, err := root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(ch.GetOp())
		received = v
		receiverDone = true
		return perr
	})
	require.NoError(t, err)

	sched.RunUntilIdle()
	require.False(t, receiverDone, "receiver must block until a sender arrives")

	_, err = root.Spawn(func(s *Scope) error {
		_, perr := s.Perform(ch.PutOp("hello"))
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.True(t, receiverDone)
	require.Equal(t, "hello", received)
}

func TestChannel_BufferedPutDoesNotBlockUnderCapacity(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	ch := NewChannel(1)

	putDone := false
	_, err := root.Spawn(func(s *Scope) error {
		_, perr := s.Perform(ch.PutOp("buffered"))
		putDone = true
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.True(t, putDone)

	var received any
	_, err = root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(ch.GetOp())
		received = v
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, "buffered", received)
}

func TestChannel_ReceiversWakeInFIFOOrder(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	ch := NewChannel(0)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := root.Spawn(func(s *Scope) error {
			_, perr := s.Perform(ch.GetOp())
			order = append(order, i)
			return perr
		})
		require.NoError(t, err)
	}
	sched.RunUntilIdle()

	for i := 0; i < 3; i++ {
		_, err := root.Spawn(func(s *Scope) error {
			_, perr := s.Perform(ch.PutOp(nil))
			return perr
		})
		require.NoError(t, err)
		sched.RunUntilIdle()
	}

	require.Equal(t, []int{0, 1, 2}, order)
}
