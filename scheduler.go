// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import "time"

// EventWaiter is implemented by a TaskSource that can block the process
// waiting for external events (a Poller backed by epoll, say) rather than
// just being polled every tick. The scheduler consults at most one
// EventWaiter per iteration, falling back to TimeSource.Sleep when none is
// registered.
type EventWaiter interface {
	WaitForEvents(timeout time.Duration)
}

// TaskSource is anything the scheduler asks, once per run-loop iteration,
// to schedule tasks onto the ready queue: the timer wheel, a poller
// adapter, a process-wait adapter.
type TaskSource interface {
	ScheduleTasks(s *Scheduler, now time.Time, timeoutHint time.Duration)
}

// Scheduler is the single-threaded run loop: a FIFO ready queue, a set of
// task sources (the timer wheel always among them), and the glue that lets
// a fiber's completion or suspension drive the next iteration. All of its
// state is touched from exactly one goroutine at a time (see doc.go), so
// none of it needs synchronization.
type Scheduler struct {
	current []Task
	next    []Task

	wheel   *TimerWheel
	sources []TaskSource

	time    TimeSource
	logger  Logger
	poller  Poller
	process ProcessBackend

	currentFiber *Fiber

	stopped   bool
	tickCount uint64
}

// NewScheduler constructs a Scheduler with its timer wheel already
// registered as a task source.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	cfg := resolveSchedulerOptions(opts)
	s := &Scheduler{
		wheel:   NewTimerWheel(),
		time:    cfg.time,
		logger:  cfg.logger,
		poller:  cfg.poller,
		process: cfg.process,
	}
	s.sources = append(s.sources, s.wheel)
	return s
}

// Schedule appends task to the next ready-queue batch.
func (s *Scheduler) Schedule(t Task) {
	s.next = append(s.next, t)
}

// ScheduleAtTime registers task with the timer wheel to run at the given
// wall-clock time t. Internally this is converted to an offset against the
// scheduler's monotonic clock, since the wheel itself is keyed entirely by
// monotonic time (wall clocks can jump; the wheel must not).
func (s *Scheduler) ScheduleAtTime(t time.Time, task Task) CancelFunc {
	return s.wheel.AddDelta(s.monotonicNow(), t.Sub(s.Now()), task)
}

// ScheduleAfterSleep registers task with the timer wheel to run after d.
func (s *Scheduler) ScheduleAfterSleep(d time.Duration, task Task) CancelFunc {
	return s.wheel.AddDelta(s.monotonicNow(), d, task)
}

// AddTaskSource registers an additional TaskSource, consulted every
// iteration of Main alongside the timer wheel. A Poller or ProcessBackend
// adapter is typically installed this way by the package wiring it up.
func (s *Scheduler) AddTaskSource(src TaskSource) {
	s.sources = append(s.sources, src)
}

// Now returns the scheduler's current wall-clock time, per its TimeSource.
func (s *Scheduler) Now() time.Time { return s.time.Realtime() }

func (s *Scheduler) monotonicNow() time.Time {
	return time.Time{}.Add(s.time.Monotonic())
}

// Poller returns the scheduler's configured Poller (a noop if none was
// installed via WithPoller).
func (s *Scheduler) Poller() Poller { return s.poller }

// ProcessBackend returns the scheduler's configured ProcessBackend (a noop
// if none was installed via WithProcessBackend).
func (s *Scheduler) ProcessBackend() ProcessBackend { return s.process }

// Stop requests the run loop to exit once the ready queue drains and no
// further task sources produce work. It does not cancel in-flight fibers or
// scopes; callers that want that should cancel their root scope first.
func (s *Scheduler) Stop() { s.stopped = true }

// ReadyLen reports the number of tasks queued to run on the next iteration.
func (s *Scheduler) ReadyLen() int { return len(s.next) }

// TimerLen reports the number of entries (cancelled or not) still held by
// the timer wheel.
func (s *Scheduler) TimerLen() int { return s.wheel.Len() }

// TickCount reports how many times RunOnce has executed a batch.
func (s *Scheduler) TickCount() uint64 { return s.tickCount }

func (s *Scheduler) hasReadyWork() bool { return len(s.next) > 0 }

// RunOnce swaps in the pending batch and runs each task exactly once. A
// panicking task is recovered and logged rather than being allowed to bring
// down the run loop, the way the scheduler's own goroutine must never die
// while any fiber is still live.
func (s *Scheduler) RunOnce() {
	s.current, s.next = s.next, s.current[:0]
	s.tickCount++
	for _, t := range s.current {
		s.safeRun(t)
	}
}

func (s *Scheduler) safeRun(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler: task panicked", nil, map[string]any{"panic": r})
		}
	}()
	t.Run()
}

func (s *Scheduler) timeoutHint(now time.Time) time.Duration {
	at, ok := s.wheel.NextEntryTime()
	if !ok {
		return -1
	}
	d := at.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) findEventWaiter() EventWaiter {
	for _, src := range s.sources {
		if w, ok := src.(EventWaiter); ok {
			return w
		}
	}
	return nil
}

// Main runs the scheduler until Stop has been called and the ready queue
// and every task source have no further work to contribute. Each iteration:
// asks every task source to schedule tasks, runs whatever landed in the
// ready queue, and otherwise blocks (via an EventWaiter task source, or
// failing that TimeSource.Sleep) until the next timer deadline.
func (s *Scheduler) Main() {
	for {
		now := s.monotonicNow()
		hint := s.timeoutHint(now)
		for _, src := range s.sources {
			src.ScheduleTasks(s, now, hint)
		}
		if s.hasReadyWork() {
			s.RunOnce()
			continue
		}
		if s.stopped {
			return
		}
		if w := s.findEventWaiter(); w != nil {
			w.WaitForEvents(hint)
			continue
		}
		if hint > 0 {
			s.time.Sleep(hint)
			continue
		}
		if hint < 0 {
			// No timers, no event waiter, nothing ready: nothing will ever
			// wake us. This happens when nothing is pending at all, or when
			// every live fiber waits on something no task source can wake.
			return
		}
	}
}

// RunUntilIdle drains the ready queue and fires due timers repeatedly until
// neither produces further work, without blocking on TimeSource.Sleep or an
// EventWaiter. It is the primitive deterministic tests build on: advance a
// manual TimeSource, then call RunUntilIdle to let every timer due by that
// point actually fire.
func (s *Scheduler) RunUntilIdle() {
	for {
		now := s.monotonicNow()
		for _, src := range s.sources {
			src.ScheduleTasks(s, now, 0)
		}
		if !s.hasReadyWork() {
			return
		}
		s.RunOnce()
	}
}
