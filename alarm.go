// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import "time"

// Alarm drives a recurring (or one-shot) wall-clock schedule: each call to
// NextOp asks nextTime for the next wall-clock deadline given when the
// alarm last fired (or the zero Time, the first time), converts that to an
// offset against the scheduler's monotonic clock, and becomes ready at that
// point. A nextTime that returns ok=false means the schedule has ended;
// NextOp then never becomes ready.
type Alarm struct {
	sched    *Scheduler
	nextTime func(last, now time.Time) (time.Time, bool)
	last     time.Time
}

// NewAlarm returns an Alarm driven by sched and nextTime.
func NewAlarm(sched *Scheduler, nextTime func(last, now time.Time) (time.Time, bool)) *Alarm {
	return &Alarm{sched: sched, nextTime: nextTime}
}

// NextOp returns an event that commits with the wall-clock time of the next
// scheduled firing.
func (a *Alarm) NextOp() Event {
	return Base(
		func(*Suspension) (bool, any, error) { return false, nil, nil },
		func(_ *Suspension, finish func(any, error)) CancelFunc {
			nowWall := a.sched.Now()
			at, ok := a.nextTime(a.last, nowWall)
			if !ok {
				return func() {}
			}
			delay := at.Sub(nowWall)
			return a.sched.ScheduleAfterSleep(delay, TaskFunc(func() {
				a.last = at
				finish(at, nil)
			}))
		},
		identityWrap,
	)
}

// Periodic returns a nextTime function suitable for NewAlarm that fires
// every interval, anchored to the first call's now rather than drifting
// with however long each period's work took.
func Periodic(interval time.Duration) func(last, now time.Time) (time.Time, bool) {
	return func(last, now time.Time) (time.Time, bool) {
		if last.IsZero() {
			return now.Add(interval), true
		}
		next := last.Add(interval)
		if next.Before(now) {
			next = now
		}
		return next, true
	}
}
