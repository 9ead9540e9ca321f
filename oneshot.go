// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// Oneshot is a trigger-once latch: the first Signal call wins, every
// subsequent one is a no-op, and a waiter added after the trigger already
// fired runs immediately with the latched value rather than being lost.
type Oneshot struct {
	triggered bool
	val       any
	waiters   []func(any)
}

// NewOneshot returns an untriggered Oneshot.
func NewOneshot() *Oneshot {
	return &Oneshot{}
}

// Signal triggers the latch with val. Idempotent: only the first call has
// any effect.
func (o *Oneshot) Signal(val any) {
	if o.triggered {
		return
	}
	o.triggered = true
	o.val = val
	waiters := o.waiters
	o.waiters = nil
	for _, w := range waiters {
		if w != nil {
			w(val)
		}
	}
}

// Triggered reports whether Signal has already run.
func (o *Oneshot) Triggered() bool { return o.triggered }

// Value returns the latched value. Only meaningful once Triggered is true.
func (o *Oneshot) Value() any { return o.val }

// AddWaiter registers fn to run when the latch triggers, or immediately (in
// this call) if it already has. The returned CancelFunc unregisters fn; it
// is a no-op once the latch has fired.
func (o *Oneshot) AddWaiter(fn func(any)) CancelFunc {
	if o.triggered {
		fn(o.val)
		return func() {}
	}
	idx := len(o.waiters)
	o.waiters = append(o.waiters, fn)
	return func() {
		if idx < len(o.waiters) {
			o.waiters[idx] = nil
		}
	}
}

// WaitOp returns an event that commits with the latched value once the
// oneshot has triggered, and blocks until then otherwise.
func (o *Oneshot) WaitOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) {
			if o.triggered {
				return true, o.val, nil
			}
			return false, nil, nil
		},
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			return o.AddWaiter(func(v any) { finish(v, nil) })
		},
		identityWrap,
	)
}
