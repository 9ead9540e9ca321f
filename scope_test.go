package fiber

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScope_FiberFailureCancelsSiblingFibers(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	boom := errors.New("boom")
	siblingSeenCancel := false

	_, err := root.Spawn(func(s *Scope) error {
		return boom
	})
	require.NoError(t, err)

	_, err = root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(s.NotOkOp())
		if perr == nil && v != nil {
			siblingSeenCancel = true
		}
		return nil
	})
	require.NoError(t, err)

	sched.RunUntilIdle()

	require.Equal(t, ScopeFailed, root.Status())
	require.True(t, siblingSeenCancel)
	require.ErrorIs(t, root.Err(), boom)
}

func TestScope_FinalizersRunInLIFOOrder(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var order []int
	root.Finally(func() error { order = append(order, 1); return nil })
	root.Finally(func() error { order = append(order, 2); return nil })
	root.Finally(func() error { order = append(order, 3); return nil })

	_, err := root.Spawn(func(s *Scope) error { return nil })
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, []int{3, 2, 1}, order)
}

func TestScope_JoinWaitsForChildScopes(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var joined bool
	var joinStatus ScopeStatus

	_, err := root.Spawn(func(s *Scope) error {
		status, primary, extras, perr := s.RunScope(func(child *Scope) error {
			_, spawnErr := child.Spawn(func(*Scope) error { return nil })
			return spawnErr
		})
		require.NoError(t, perr)
		require.Nil(t, primary)
		require.Empty(t, extras)
		joined = true
		joinStatus = status
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.True(t, joined)
	require.Equal(t, ScopeOK, joinStatus)
}

func TestScope_CancelIsIdempotent(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	root.Cancel("first")
	root.Cancel("second")

	require.Equal(t, ScopeCancelled, root.Status())
	var cancelErr *ScopeCancelledError
	require.ErrorAs(t, root.Err(), &cancelErr)
	require.Equal(t, "first", cancelErr.Reason)
}

func TestScope_ExtraErrorsAggregateBeyondPrimary(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	first := errors.New("first failure")
	second := errors.New("second failure")

	_, err := root.Spawn(func(s *Scope) error { return first })
	require.NoError(t, err)
	_, err = root.Spawn(func(s *Scope) error { return second })
	require.NoError(t, err)

	sched.RunUntilIdle()

	require.Equal(t, ScopeFailed, root.Status())
	require.ErrorIs(t, root.Err(), first)
	require.Len(t, root.Failures(), 1)
}

func TestScope_RunScopeOpCancelsChildWhenTimeoutWins(t *testing.T) {
	sched, mt := newTestScheduler()
	root := NewRootScope(sched)

	var childRef *Scope
	fiberStopped := false

	_, err := root.Spawn(func(s *Scope) error {
		ev := s.RunScopeOp(func(child *Scope) error {
			childRef = child
			_, perr := child.Sync(Never())
			fiberStopped = true
			return perr
		})
		_, perr := s.Perform(Choice(ev, SleepOp(sched, 10*time.Second)))
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.NotNil(t, childRef)
	require.Equal(t, ScopeRunning, childRef.Status())
	require.False(t, fiberStopped)

	mt.Advance(10 * time.Second)
	sched.RunUntilIdle()

	require.Equal(t, ScopeCancelled, childRef.Status())
	require.True(t, fiberStopped, "the child's fiber must actually unblock and stop once the race is lost")
}

func TestScope_ChildBornAfterParentCancelledIsAlreadyCancelled(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	root.Cancel("shutdown")

	child := root.NewChild()
	require.Equal(t, ScopeCancelled, child.Status())
	require.True(t, child.isDone, "a stillborn-cancelled child must still finish its termination sequence")
}
