// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package fiber implements a user-space, single-threaded fiber runtime:
// a cooperative scheduler with a timer wheel, a composable synchronous
// event algebra in the style of Concurrent ML, and a structured-concurrency
// scope tree built on top of both.
//
// # Coroutines without coroutines
//
// Go has no native stackful coroutine or continuation primitive, so a
// fiber's body runs on an ordinary goroutine. What makes it behave like a
// cooperative fiber rather than an independently scheduled one is strict
// hand-off: a fiber's goroutine is parked on a channel receive at every
// moment except the one window in which the scheduler has explicitly handed
// it control (Fiber.Perform's suspend, and the startTask/resumeTask that
// resume it). Exactly one goroutine is ever doing work at a time, which is
// what lets the scheduler, the event engine and the scope tree all mutate
// their state without locks: by the time any of that code runs, every other
// goroutine in the runtime is blocked on a channel recv.
//
// # Layering
//
// TimerWheel orders pending deadlines; Scheduler drives a ready queue plus
// whatever TaskSources (the wheel, a Poller adapter, a process-wait
// adapter) produce tasks each iteration; Fiber is one strand of cooperative
// execution; Event and its combinators are the only way a fiber ever
// blocks; Scope ties fibers together into a fail-fast, cancellation-aware
// tree with ordered finalisers. Channel, Condition, SleepOp and Alarm are
// convenience events built entirely on top of the same Base/block/finish
// machinery user code can use directly.
package fiber
