// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logging interface used throughout this package.
// It mirrors the handful of severities the scheduler, scope tree and event
// engine actually emit: lifecycle notices, and errors that didn't make it
// into a returned error value (panics recovered inside a finaliser, backend
// callbacks, etc). Logging is always synchronous and non-blocking, and is
// never itself a suspension point.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
}

// logifaceLogger adapts a *logiface.Logger[*stumpy.Event] to Logger.
type logifaceLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewLogifaceLogger builds a Logger backed by logiface, writing
// newline-delimited JSON via stumpy. It is not installed by default:
// NewScheduler uses DefaultLogger, which discards records until SetLogger
// installs another Logger.
func NewLogifaceLogger(level logiface.Level) Logger {
	return &logifaceLogger{
		l: logiface.New[*stumpy.Event](
			logiface.WithLevel[*stumpy.Event](level),
			stumpy.WithStumpy(),
		),
	}
}

func (g *logifaceLogger) Info(msg string, fields map[string]any) {
	b := g.l.Info()
	for k, v := range fields {
		b = b.Any(k, v)
	}
	b.Log(msg)
}

func (g *logifaceLogger) Error(msg string, err error, fields map[string]any) {
	b := g.l.Err()
	if err != nil {
		b = b.Err(err)
	}
	for k, v := range fields {
		b = b.Any(k, v)
	}
	b.Log(msg)
}

// noopLogger discards everything. Used as the zero-value logger so a
// Scheduler built without SetLogger never has to nil-check.
type noopLogger struct{}

func (noopLogger) Info(string, map[string]any)         {}
func (noopLogger) Error(string, error, map[string]any) {}

// NewNoopLogger returns a Logger that discards all records.
func NewNoopLogger() Logger { return noopLogger{} }

var (
	globalMu     sync.RWMutex
	globalLogger Logger = noopLogger{}
)

// SetLogger installs the package-wide default logger, used by any
// Scheduler constructed without an explicit WithLogger option.
func SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// DefaultLogger returns the current package-wide default logger.
func DefaultLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
