// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import "time"

// SleepOp returns an event that becomes ready after d has elapsed on
// sched's clock. It never commits speculatively, even if d is zero or
// negative: sleeping always costs at least one trip through the timer
// wheel, which is what lets it compose with cancellation and other events
// via Choice instead of being a special blocking call.
func SleepOp(sched *Scheduler, d time.Duration) Event {
	return Base(
		func(*Suspension) (bool, any, error) { return false, nil, nil },
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			return sched.ScheduleAfterSleep(d, TaskFunc(func() { finish(nil, nil) }))
		},
		identityWrap,
	)
}
