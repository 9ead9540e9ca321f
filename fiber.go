// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import "fmt"

// FiberState is a fiber's position in the ready -> running ->
// (suspended -> ready -> running)* -> done state machine. It exists only
// for introspection; nothing in this package branches on it.
type FiberState int

const (
	FiberReady FiberState = iota
	FiberRunning
	FiberSuspended
	FiberDone
)

type signalKind int

const (
	sigSuspend signalKind = iota
	sigDone
)

type fiberSignal struct {
	kind signalKind
	err  error
}

type payload struct {
	val any
	err error
}

// Fiber is a single strand of cooperative execution. Its body runs on a
// real goroutine, but that goroutine is never concurrently live with any
// other fiber's: every suspension point (Perform) hands control back to the
// scheduler over a channel and blocks until the scheduler hands
// it back, so exactly one goroutine is ever doing work at a time. See
// doc.go for why this is the idiomatic Go rendering of a stackful
// coroutine.
type Fiber struct {
	scope     *Scope
	body      func(*Scope) error
	scheduler *Scheduler

	state FiberState

	started bool
	control chan fiberSignal
	resume  chan payload
}

func newFiber(scope *Scope, body func(*Scope) error) *Fiber {
	return &Fiber{
		scope:     scope,
		body:      body,
		scheduler: scope.scheduler,
		state:     FiberReady,
		control:   make(chan fiberSignal, 1),
		resume:    make(chan payload, 1),
	}
}

// State reports the fiber's current position in its state machine.
func (f *Fiber) State() FiberState { return f.state }

// Scope returns the scope this fiber was spawned into.
func (f *Fiber) Scope() *Scope { return f.scope }

// startTask is the Task the scheduler runs to give a brand new fiber its
// first slice of execution.
type startTask struct{ fiber *Fiber }

func (t *startTask) Run() {
	f := t.fiber
	f.state = FiberRunning
	f.scheduler.currentFiber = f
	f.started = true
	go f.runBody()
	sig := <-f.control
	f.scheduler.currentFiber = nil
	f.handleSignal(sig)
}

// resumeTask is the Task the scheduler runs to hand a previously suspended
// fiber its winning Perform outcome and let it run until it next suspends
// or finishes.
type resumeTask struct {
	fiber   *Fiber
	payload payload
}

func (t *resumeTask) Run() {
	f := t.fiber
	f.state = FiberRunning
	f.scheduler.currentFiber = f
	f.resume <- t.payload
	sig := <-f.control
	f.scheduler.currentFiber = nil
	f.handleSignal(sig)
}

func (f *Fiber) handleSignal(sig fiberSignal) {
	switch sig.kind {
	case sigDone:
		f.state = FiberDone
		f.scope.fiberDone(f, sig.err)
	case sigSuspend:
		f.state = FiberSuspended
	}
}

func (f *Fiber) runBody() {
	var result error
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = fmt.Errorf("fiber: panic: %v", r)
			}
		}()
		result = f.body(f.scope)
	}()
	f.control <- fiberSignal{kind: sigDone, err: result}
}

// deliver is called by Suspension.claim, from whichever goroutine currently
// holds control (the scheduler's, or that of the fiber whose action woke
// this one), once this fiber's winning branch is known. It never runs the fiber itself;
// it only schedules a resumeTask so the hand-off happens on the next ready
// queue pass, keeping the fiber's actual resumption subject to the same
// FIFO fairness as every other task.
func (f *Fiber) deliver(val any, err error) {
	f.state = FiberReady
	f.scheduler.Schedule(&resumeTask{fiber: f, payload: payload{val: val, err: err}})
}

// Perform runs the four-phase negotiation protocol for ev: try every branch
// speculatively, and if none commits, register each one and block until the
// scheduler wakes this fiber with a winner. Must be called from the
// goroutine of the fiber it was invoked for; any other caller gets
// ErrPerformMisuse.
func (f *Fiber) Perform(ev Event) (any, error) {
	if f.scheduler.currentFiber != f {
		return nil, ErrPerformMisuse
	}

	branches, err := ev.build(identityWrap)
	if err != nil {
		return nil, err
	}

	for i := range branches {
		committed, v, cerr := branches[i].try(nil)
		if committed {
			signalLosingNacks(branches, &branches[i])
			return branches[i].wrap(v, cerr)
		}
	}

	susp := newSuspension(f)
	tokens := make([]CancelFunc, len(branches))
	for i := range branches {
		idx := i
		tokens[idx] = branches[idx].block(susp, func(v any, cerr error) {
			susp.claim(branches, idx, v, cerr)
		})
	}
	susp.tokens = tokens

	f.control <- fiberSignal{kind: sigSuspend}
	p := <-f.resume
	return p.val, p.err
}
