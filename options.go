// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// schedulerOptions holds configuration for NewScheduler.
type schedulerOptions struct {
	time    TimeSource
	logger  Logger
	poller  Poller
	process ProcessBackend
}

// SchedulerOption configures a Scheduler instance.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions)
}

type schedulerOptionFunc func(*schedulerOptions)

func (f schedulerOptionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithTimeSource overrides the default real TimeSource, primarily for
// deterministic timer-driven tests.
func WithTimeSource(ts TimeSource) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.time = ts })
}

// WithLogger overrides the package default logger for a single Scheduler.
func WithLogger(l Logger) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.logger = l })
}

// WithPoller installs a Poller implementation, e.g. an epoll- or
// kqueue-backed one from a platform-specific sibling package. Without this
// option, any attempt to wait on a file descriptor fails with a
// BackendError.
func WithPoller(p Poller) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.poller = p })
}

// WithProcessBackend installs a ProcessBackend implementation. Without this
// option, any attempt to spawn or wait on a process fails with a
// BackendError.
func WithProcessBackend(p ProcessBackend) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.process = p })
}

func resolveSchedulerOptions(opts []SchedulerOption) *schedulerOptions {
	cfg := &schedulerOptions{
		time:    NewRealTimeSource(),
		logger:  DefaultLogger(),
		poller:  noopPoller{},
		process: noopProcessBackend{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScheduler(cfg)
	}
	return cfg
}

// scopeOptions holds configuration for a root scope. Most child scopes
// inherit their parent's resolved settings rather than taking their own
// ScopeOptions; only NewRootScope takes them directly.
type scopeOptions struct {
	syncNackCleanup bool
}

// ScopeOption configures a root Scope.
type ScopeOption interface {
	applyScope(*scopeOptions)
}

type scopeOptionFunc func(*scopeOptions)

func (f scopeOptionFunc) applyScope(o *scopeOptions) { f(o) }

// WithSyncNackCleanup makes with-nack losers run their nack callback
// synchronously, within the same Perform call that decided they lost,
// rather than being scheduled as a follow-up task. This is already this
// module's only behavior (the single-threaded model makes deferring it
// pointless) but is exposed as an option for forward compatibility with a
// future backend that wants the deferred variant.
func WithSyncNackCleanup(enabled bool) ScopeOption {
	return scopeOptionFunc(func(o *scopeOptions) { o.syncNackCleanup = enabled })
}

func resolveScopeOptions(opts []ScopeOption) *scopeOptions {
	cfg := &scopeOptions{syncNackCleanup: true}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScope(cfg)
	}
	return cfg
}
