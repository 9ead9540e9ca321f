// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// Task is the unit of work the scheduler runs. Everything that reaches the
// ready queue — fiber resumption, a fired timer, a completed I/O wait — is a
// Task.
type Task interface {
	Run()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

// Run implements Task.
func (f TaskFunc) Run() { f() }

// CancelFunc unregisters an earlier registration (a timer, a waitset entry,
// a poller wait). It is idempotent: calling it more than once, or after the
// thing it guards already fired, is a no-op.
type CancelFunc func()
