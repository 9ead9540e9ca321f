// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// Condition is a repeatable broadcast/single-wake signal, unlike Oneshot
// which latches forever: a Condition forgets each Signal as soon as it has
// woken whichever waiters were registered at the time, so it supports many
// signal/wait cycles over its lifetime. WaitOp's try always fails, by
// design: a Condition carries no "already triggered" memory for a waiter
// arriving after the fact to observe.
type Condition struct {
	ws        *Waitset
	broadcast bool
}

// NewCondition returns a Condition. If broadcast is true, Signal wakes
// every waiter currently registered; otherwise it wakes just the
// longest-waiting one.
func NewCondition(broadcast bool) *Condition {
	return &Condition{ws: NewWaitset(), broadcast: broadcast}
}

// Signal wakes waiters per the broadcast/single-wake mode this Condition
// was constructed with. A Signal with nobody waiting is simply lost.
func (c *Condition) Signal() {
	if c.broadcast {
		c.ws.NotifyAll(c, nil, nil)
	} else {
		c.ws.NotifyOne(c, nil, nil)
	}
}

// WaitOp returns an event that blocks until the next Signal call.
func (c *Condition) WaitOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) { return false, nil, nil },
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			return c.ws.Add(c, finish)
		},
		identityWrap,
	)
}
