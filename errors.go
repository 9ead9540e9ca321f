// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"errors"
	"fmt"
)

// ErrPerformMisuse is returned when Perform is called outside the fiber it
// was invoked for, or when a finaliser attempts to suspend.
var ErrPerformMisuse = errors.New("fiber: perform called outside the owning fiber")

// ErrScopeTerminal is returned by Spawn when the scope has already left the
// running state. (NewChild returns no error; it hands back a child that is
// already cancelled.)
var ErrScopeTerminal = errors.New("fiber: scope is no longer running")

// ErrFinaliserPanicked marks an error synthesized from a recovered panic
// inside a scope finaliser.
var ErrFinaliserPanicked = errors.New("fiber: finaliser panicked")

var (
	errNoPollerConfigured         = errors.New("no Poller configured on this scheduler")
	errNoProcessBackendConfigured = errors.New("no ProcessBackend configured on this scheduler")
)

// FiberFailureError wraps the error returned or panicked by a fiber body.
// It is what a scope records as its primary error when a fiber fails.
type FiberFailureError struct {
	Cause error
}

func (e *FiberFailureError) Error() string {
	return fmt.Sprintf("fiber failed: %v", e.Cause)
}

func (e *FiberFailureError) Unwrap() error {
	return e.Cause
}

// ScopeCancelledError is the primary error recorded by a scope that
// transitioned to cancelled, and the error observed by anything performing
// that scope's not-ok event afterward.
type ScopeCancelledError struct {
	Reason string
}

func (e *ScopeCancelledError) Error() string {
	if e.Reason == "" {
		return "scope cancelled"
	}
	return "scope cancelled: " + e.Reason
}

// BackendError wraps a failure surfaced by an external collaborator (a
// Poller or ProcessBackend implementation) so it can be distinguished from
// failures originating in fiber bodies.
type BackendError struct {
	Op    string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("fiber: backend error during %s: %v", e.Op, e.Cause)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}
