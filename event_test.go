package fiber

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChoice_SpeculativeCommitPrefersFirstReadyBranch(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var got any
	_, err := root.Spawn(func(s *Scope) error {
		v, err := s.Perform(Choice(Never(), Always("ready"), Always("also ready")))
		got = v
		return err
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, "ready", got)
}

func TestChoice_BlockedBranchWakesWhenSignalled(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	o := NewOneshot()

	var got any
	done := false
	_, err := root.Spawn(func(s *Scope) error {
		v, err := s.Perform(Choice(Never(), o.WaitOp()))
		got = v
		done = true
		return err
	})
	require.NoError(t, err)

	sched.RunUntilIdle()
	require.False(t, done)

	o.Signal("woken")
	sched.RunUntilIdle()

	require.True(t, done)
	require.Equal(t, "woken", got)
}

func TestChoice_BlockedPassWakesInWaiterRegistrationOrder(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)
	cond := NewCondition(false) // single-wake

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := root.Spawn(func(s *Scope) error {
			_, err := s.Perform(cond.WaitOp())
			order = append(order, i)
			return err
		})
		require.NoError(t, err)
	}
	sched.RunUntilIdle()

	cond.Signal()
	cond.Signal()
	cond.Signal()
	sched.RunUntilIdle()

	require.Equal(t, []int{0, 1, 2}, order)
}

func TestWithNack_RunsOnLoseWhenSiblingWins(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	nacked := false
	sibling := NewOneshot()

	_, err := root.Spawn(func(s *Scope) error {
		body := WithNack(func(nack Event) Event {
			_, spawnErr := s.Spawn(func(inner *Scope) error {
				_, perr := inner.Perform(nack)
				nacked = true
				return perr
			})
			require.NoError(t, spawnErr)
			return Never()
		})
		_, perr := s.Perform(Choice(body, sibling.WaitOp()))
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()
	require.False(t, nacked)

	sibling.Signal(nil)
	sched.RunUntilIdle()

	require.True(t, nacked)
}

func TestGuard_ErrorPropagatesAsPerformError(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	boom := errors.New("boom")
	var gotErr error
	_, err := root.Spawn(func(s *Scope) error {
		_, perr := s.Perform(Guard(func() (Event, error) { return Event{}, boom }))
		gotErr = perr
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.ErrorIs(t, gotErr, boom)
}

func TestBracket_ReleasesExactlyOnceOnCommit(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	releases := 0
	var abortedSeen bool
	_, err := root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(Bracket(
			func() (any, error) { return "resource", nil },
			func(r any, aborted bool) { releases++; abortedSeen = aborted },
			func(r any) Event { return Always(r) },
		))
		if perr != nil {
			return perr
		}
		if v != "resource" {
			t.Errorf("expected resource, got %v", v)
		}
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, 1, releases)
	require.False(t, abortedSeen)
}

func TestBracket_ReleasesAsAbortedWhenSiblingWins(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	releases := 0
	var abortedSeen bool
	sibling := NewOneshot()

	_, err := root.Spawn(func(s *Scope) error {
		ev := Bracket(
			func() (any, error) { return "resource", nil },
			func(r any, aborted bool) { releases++; abortedSeen = aborted },
			func(r any) Event { return Never() },
		)
		_, perr := s.Perform(Choice(ev, sibling.WaitOp()))
		return perr
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	sibling.Signal(nil)
	sched.RunUntilIdle()

	require.Equal(t, 1, releases)
	require.True(t, abortedSeen)
}

func TestFirstReady_ReportsWinningIndex(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var result IndexedResult
	_, err := root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(FirstReady([]Event{Never(), Always("b"), Never()}))
		if perr != nil {
			return perr
		}
		result = v.(IndexedResult)
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, 1, result.Index)
	require.Equal(t, "b", result.Value)
}

func TestNamedChoice_ReportsWinningName(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var result NamedResult
	_, err := root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(NamedChoice(
			NamedBranch{Name: "x", Event: Never()},
			NamedBranch{Name: "y", Event: Always(7)},
		))
		if perr != nil {
			return perr
		}
		result = v.(NamedResult)
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.Equal(t, "y", result.Name)
	require.Equal(t, 7, result.Value)
}

func TestBooleanChoice_ReportsWhichSideWon(t *testing.T) {
	sched, _ := newTestScheduler()
	root := NewRootScope(sched)

	var result BooleanResult
	_, err := root.Spawn(func(s *Scope) error {
		v, perr := s.Perform(BooleanChoice(Never(), Always("f")))
		if perr != nil {
			return perr
		}
		result = v.(BooleanResult)
		return nil
	})
	require.NoError(t, err)
	sched.RunUntilIdle()

	require.False(t, result.Branch)
	require.Equal(t, "f", result.Value)
}
