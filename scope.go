// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"fmt"

	"github.com/jangala-dev/gofiber/internal/merr"
)

// ScopeStatus is a scope's monotonic position in running -> {ok, failed,
// cancelled}. Once it leaves running it never changes again.
type ScopeStatus int

const (
	ScopeRunning ScopeStatus = iota
	ScopeOK
	ScopeFailed
	ScopeCancelled
)

func (s ScopeStatus) String() string {
	switch s {
	case ScopeRunning:
		return "running"
	case ScopeOK:
		return "ok"
	case ScopeFailed:
		return "failed"
	case ScopeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// JoinResult is what a scope's JoinOp commits with once the scope has fully
// terminated: every fiber it owns has finished, every child has itself
// joined, and its finalisers have run.
type JoinResult struct {
	Status  ScopeStatus
	Primary error
	Extras  []error
}

// Scope is one node of the structured-concurrency tree: a set of fibers and
// child scopes that share a fail-fast fate. A fiber failing, or an explicit
// Cancel, pushes the scope out of running; once every fiber and child it
// owns has actually stopped, its LIFO finalisers run and it is done.
type Scope struct {
	parent    *Scope
	scheduler *Scheduler
	logger    Logger
	opts      *scopeOptions

	children map[*Scope]struct{}
	fibers   map[*Fiber]struct{}

	pendingFibers   int
	pendingChildren int

	status  ScopeStatus
	primary error
	extras  *merr.Collector

	finalizers []func() error

	notOk *Oneshot
	done  *Oneshot
	isDone bool
}

// NewRootScope constructs a scope with no parent, suitable as the top of a
// structured-concurrency tree driven by sched.
func NewRootScope(sched *Scheduler, opts ...ScopeOption) *Scope {
	return &Scope{
		scheduler: sched,
		logger:    sched.logger,
		opts:      resolveScopeOptions(opts),
		children:  make(map[*Scope]struct{}),
		fibers:    make(map[*Fiber]struct{}),
		extras:    merr.New(),
		notOk:     NewOneshot(),
		done:      NewOneshot(),
	}
}

// NewChild creates a child scope. If the parent has already left running,
// the child is born already cancelled, matching the invariant that
// cancellation (and failure) propagate transitively to every descendant.
func (s *Scope) NewChild() *Scope {
	c := &Scope{
		parent:    s,
		scheduler: s.scheduler,
		logger:    s.logger,
		opts:      s.opts,
		children:  make(map[*Scope]struct{}),
		fibers:    make(map[*Fiber]struct{}),
		extras:    merr.New(),
		notOk:     NewOneshot(),
		done:      NewOneshot(),
	}
	s.children[c] = struct{}{}
	s.pendingChildren++
	if s.status != ScopeRunning {
		c.cancelInternal(fmt.Sprintf("parent scope already %s", s.status))
		c.maybeFinish()
	}
	return c
}

// Spawn starts a new fiber in this scope running body. Fails with
// ErrScopeTerminal if the scope has already left running.
func (s *Scope) Spawn(body func(*Scope) error) (*Fiber, error) {
	if s.status != ScopeRunning {
		return nil, ErrScopeTerminal
	}
	f := newFiber(s, body)
	s.fibers[f] = struct{}{}
	s.pendingFibers++
	s.scheduler.Schedule(&startTask{fiber: f})
	return f, nil
}

func (s *Scope) fiberDone(f *Fiber, err error) {
	delete(s.fibers, f)
	s.pendingFibers--
	if err != nil {
		s.fail(&FiberFailureError{Cause: err})
	}
	s.maybeFinish()
}

func (s *Scope) fail(err error) {
	if s.status == ScopeRunning {
		s.status = ScopeFailed
		s.primary = err
		s.logger.Error("scope failed", err, nil)
		s.notOk.Signal(err)
		s.cancelChildren(err.Error())
		return
	}
	s.extras.Add(err)
}

// Cancel requests cancellation with reason. Idempotent: a scope that has
// already left running ignores further calls.
func (s *Scope) Cancel(reason string) {
	if s.status != ScopeRunning {
		return
	}
	s.cancelInternal(reason)
	s.maybeFinish()
}

func (s *Scope) cancelInternal(reason string) {
	s.status = ScopeCancelled
	s.primary = &ScopeCancelledError{Reason: reason}
	s.notOk.Signal(s.primary)
	s.cancelChildren(reason)
}

func (s *Scope) cancelChildren(reason string) {
	for c := range s.children {
		c.Cancel(reason)
	}
}

func (s *Scope) childDone(c *Scope) {
	delete(s.children, c)
	s.pendingChildren--
	s.maybeFinish()
}

// maybeFinish checks whether every fiber and child this scope owns has
// actually stopped, and if so runs finalisers and settles status/done. It
// is called after every fiber completion, child completion, and Cancel, and
// is safe to call redundantly: isDone guards against running twice.
func (s *Scope) maybeFinish() {
	if s.isDone {
		return
	}
	if s.pendingFibers > 0 || s.pendingChildren > 0 {
		return
	}
	s.isDone = true
	s.runFinalizers()
	if s.status == ScopeRunning {
		s.status = ScopeOK
	}
	s.done.Signal(JoinResult{Status: s.status, Primary: s.primary, Extras: s.extras.Errors()})
	if s.parent != nil {
		s.parent.childDone(s)
	}
}

// runFinalizers runs this scope's finalisers in LIFO order, to completion,
// regardless of status. Finalisers take no fiber/scope argument; a finaliser
// that calls Perform through a scope it captured while no fiber is running
// gets ErrPerformMisuse.
func (s *Scope) runFinalizers() {
	for i := len(s.finalizers) - 1; i >= 0; i-- {
		fn := s.finalizers[i]
		s.finalizers[i] = nil
		s.runOneFinalizer(fn)
	}
	s.finalizers = nil
}

func (s *Scope) runOneFinalizer(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.extras.Add(fmt.Errorf("%w: %v", ErrFinaliserPanicked, r))
		}
	}()
	if err := fn(); err != nil {
		s.extras.Add(err)
	}
}

// Finally registers fn to run during this scope's termination sequence,
// after every fiber and child has stopped, in LIFO order relative to other
// Finally calls on the same scope.
func (s *Scope) Finally(fn func() error) {
	s.finalizers = append(s.finalizers, fn)
}

// Status returns the scope's current status.
func (s *Scope) Status() ScopeStatus { return s.status }

// Failures returns a snapshot of this scope's extra errors: every error
// beyond the first one (the primary), in arrival order.
func (s *Scope) Failures() []error { return s.extras.Errors() }

// Err folds the primary error and every extra error into one error, or nil
// if the scope has recorded no failures at all.
func (s *Scope) Err() error { return s.extras.WithPrimary(s.primary) }

// NotOkOp returns an event that commits with this scope's primary error as
// soon as the scope becomes failed or cancelled (it does not wait for full
// termination; descendant fibers may still be unwinding). It never commits
// for a scope that ends ok.
func (s *Scope) NotOkOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) {
			if s.status == ScopeFailed || s.status == ScopeCancelled {
				return true, s.primary, nil
			}
			return false, nil, nil
		},
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			return s.notOk.AddWaiter(func(v any) { finish(v, nil) })
		},
		identityWrap,
	)
}

// JoinOp returns an event that commits with a JoinResult once this scope
// has fully terminated: every owned fiber and child has stopped and its
// finalisers have run.
func (s *Scope) JoinOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) {
			if s.isDone {
				return true, JoinResult{Status: s.status, Primary: s.primary, Extras: s.extras.Errors()}, nil
			}
			return false, nil, nil
		},
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			return s.done.AddWaiter(func(v any) { finish(v, nil) })
		},
		identityWrap,
	)
}

// RunScopeOp returns an event that spawns a child scope running body and
// commits with its JoinResult once that child has fully terminated. Losing
// a Choice this event is part of (e.g. racing it against a timeout via
// Choice(s.RunScopeOp(body), SleepOp(sched, d))) cancels child the same way
// Bracket releases an abandoned resource, so the child scope and every fiber
// it owns are never left running past the race that was supposed to bound
// them. This is the event-returning building block behind RunScope.
func (s *Scope) RunScopeOp(body func(*Scope) error) Event {
	return Guard(func() (Event, error) {
		child := s.NewChild()
		if _, err := child.Spawn(body); err != nil {
			return Always(JoinResult{Status: child.status, Primary: child.primary, Extras: nil}), nil
		}
		return withNackCore(child.JoinOp(), func() { child.Cancel("run_scope_op: lost race") }), nil
	})
}

// RunScope spawns a child scope running body and blocks the calling fiber
// until it fully terminates, returning its status, primary error and extra
// errors. Results beyond an error are communicated out of body via values
// it closes over (a *Channel, a pointer the caller owns), the idiomatic Go
// substitute for a dynamically-typed body-return-value convention.
func (s *Scope) RunScope(body func(*Scope) error) (ScopeStatus, error, []error, error) {
	v, err := s.Perform(s.RunScopeOp(body))
	if err != nil {
		return ScopeFailed, nil, nil, err
	}
	jr := v.(JoinResult)
	return jr.Status, jr.Primary, jr.Extras, nil
}

// Perform runs the negotiation protocol for ev on behalf of whichever fiber
// is currently executing on this scope's scheduler. It is a thin forward to
// that fiber's own Perform, present on Scope because fiber bodies are
// handed their scope, not their fiber, as their sole argument.
func (s *Scope) Perform(ev Event) (any, error) {
	f := s.scheduler.currentFiber
	if f == nil {
		return nil, ErrPerformMisuse
	}
	return f.Perform(ev)
}

// Sync performs ev, racing it against this scope leaving running; if the
// scope becomes not-ok first, Sync returns the resulting ScopeCancelledError
// or fiber-failure error instead of ev's own outcome.
func (s *Scope) Sync(ev Event) (any, error) {
	return s.Perform(Choice(
		ev,
		mapResult(s.NotOkOp(), func(v any, _ error) (any, error) {
			if err, ok := v.(error); ok {
				return nil, err
			}
			return nil, fmt.Errorf("scope not ok: %v", v)
		}),
	))
}

// Try performs ev the same way Sync does, but reports the scope's status
// rather than raising when cancellation wins the race.
func (s *Scope) Try(ev Event) (ScopeStatus, any, error) {
	v, err := s.Sync(ev)
	if err != nil && s.status != ScopeRunning {
		return s.status, nil, err
	}
	return ScopeRunning, v, err
}

// CurrentFiber returns the fiber presently executing on this scope's
// scheduler, or nil if none is (the scheduler is between tasks).
func (s *Scope) CurrentFiber() *Fiber { return s.scheduler.currentFiber }
