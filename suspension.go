// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// suspState tracks where a single Perform call's negotiation is, across its
// four phases: speculative try (no Suspension needed yet), block
// (suspWaiting), wake/commit (suspCompleting, the brief window in which
// losing registrations are unlinked and nacks signalled), and done
// (suspCompleted).
type suspState int

const (
	suspWaiting suspState = iota
	suspCompleting
	suspCompleted
)

// Suspension is the per-Perform-call negotiation record. It exists only for
// calls that reach the blocked pass (every branch's try failed); it is
// created fresh for each Perform invocation and discarded once that
// invocation's fiber resumes.
type Suspension struct {
	fiber  *Fiber
	state  suspState
	tokens []CancelFunc
}

func newSuspension(f *Fiber) *Suspension {
	return &Suspension{fiber: f, state: suspWaiting}
}

// claim is how a branch's block-phase finish callback reports a win. Only
// the first caller across all of this Suspension's branches has any effect;
// later ones (a second backend racing to fire after the first already woke
// the fiber) are silently ignored, which is what makes claim idempotent in
// the face of wake/no-op races between registered branches.
func (s *Suspension) claim(branches []branch, winnerIdx int, val any, err error) {
	if s.state != suspWaiting {
		return
	}
	s.state = suspCompleting
	for i, tok := range s.tokens {
		if i != winnerIdx && tok != nil {
			tok()
		}
	}
	winner := &branches[winnerIdx]
	signalLosingNacks(branches, winner)
	finalVal, finalErr := winner.wrap(val, err)
	s.state = suspCompleted
	s.fiber.deliver(finalVal, finalErr)
}
