// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// Channel is a CSP-style rendezvous/buffered channel exposed entirely
// through events: GetOp and PutOp, not blocking methods, so a fiber
// combines channel traffic with timeouts, cancellation and other channels
// via Choice and the other combinators, like everything else in this package.
//
// Capacity 0 makes it a pure rendezvous: a PutOp only commits once a
// matching GetOp is also ready to receive, and vice versa. Capacity > 0
// lets PutOp commit into the buffer without a waiting receiver, up to that
// capacity.
type Channel struct {
	capacity  int
	buf       []any
	senders   []*sendWaiter
	receivers []*recvWaiter
}

type sendWaiter struct {
	val    any
	finish func(any, error)
}

type recvWaiter struct {
	finish func(any, error)
}

// NewChannel returns a Channel with the given buffer capacity (0 for a
// pure rendezvous channel).
func NewChannel(capacity int) *Channel {
	return &Channel{capacity: capacity}
}

func pruneSenders(senders []*sendWaiter) []*sendWaiter {
	for len(senders) > 0 && senders[0].finish == nil {
		senders = senders[1:]
	}
	return senders
}

func pruneReceivers(receivers []*recvWaiter) []*recvWaiter {
	for len(receivers) > 0 && receivers[0].finish == nil {
		receivers = receivers[1:]
	}
	return receivers
}

// GetOp returns an event that commits with the next value available on the
// channel: from the buffer if non-empty, from a directly rendezvousing
// sender otherwise.
func (c *Channel) GetOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) {
			if len(c.buf) > 0 {
				v := c.buf[0]
				c.buf = c.buf[1:]
				c.senders = pruneSenders(c.senders)
				if len(c.senders) > 0 && len(c.buf) < c.capacity {
					sw := c.senders[0]
					c.senders = c.senders[1:]
					c.buf = append(c.buf, sw.val)
					sw.finish(nil, nil)
				}
				return true, v, nil
			}
			c.senders = pruneSenders(c.senders)
			if len(c.senders) > 0 {
				sw := c.senders[0]
				c.senders = c.senders[1:]
				sw.finish(nil, nil)
				return true, sw.val, nil
			}
			return false, nil, nil
		},
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			rw := &recvWaiter{finish: finish}
			c.receivers = append(c.receivers, rw)
			return func() { rw.finish = nil }
		},
		identityWrap,
	)
}

// PutOp returns an event that commits once val has either been handed
// directly to a waiting receiver or accepted into the buffer.
func (c *Channel) PutOp(val any) Event {
	return Base(
		func(*Suspension) (bool, any, error) {
			c.receivers = pruneReceivers(c.receivers)
			if len(c.receivers) > 0 {
				rw := c.receivers[0]
				c.receivers = c.receivers[1:]
				rw.finish(val, nil)
				return true, nil, nil
			}
			if len(c.buf) < c.capacity {
				c.buf = append(c.buf, val)
				return true, nil, nil
			}
			return false, nil, nil
		},
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			sw := &sendWaiter{val: val, finish: finish}
			c.senders = append(c.senders, sw)
			return func() { sw.finish = nil }
		},
		identityWrap,
	)
}
