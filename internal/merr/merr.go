// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package merr collects a scope's extra errors and folds them, together with
// a primary error, into a single error via hashicorp/go-multierror.
package merr

import (
	"github.com/hashicorp/go-multierror"
)

// Collector accumulates errors in arrival order. It is not safe for
// concurrent use; callers in this module only ever touch a Collector from
// the single scheduler goroutine.
type Collector struct {
	errs []error
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Add appends err to the collector. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.errs = append(c.errs, err)
}

// Len reports how many errors have been collected.
func (c *Collector) Len() int {
	return len(c.errs)
}

// Errors returns a snapshot of the collected errors in arrival order.
func (c *Collector) Errors() []error {
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// WithPrimary folds primary (if non-nil) and the collected errors into a
// single error. Returns nil if there is nothing to report, the bare error
// if there is exactly one, and a *multierror.Error otherwise.
func (c *Collector) WithPrimary(primary error) error {
	all := make([]error, 0, len(c.errs)+1)
	if primary != nil {
		all = append(all, primary)
	}
	all = append(all, c.errs...)
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return &multierror.Error{Errors: all}
	}
}
