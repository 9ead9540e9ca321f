// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

// TryFunc is the speculative phase of a primitive event: report whether it
// committed, and if so with what value/error. It must not register anything
// long-lived. Perform calls it with a nil Suspension, since no Suspension
// exists until the blocked pass.
type TryFunc func(s *Suspension) (committed bool, val any, err error)

// BlockFunc is the registration phase of a primitive event, invoked only
// when every branch's try failed. finish must be called at most once, ever,
// whether the branch eventually wins or the caller just wants it known the
// branch is now satisfiable; a losing branch's registration is torn down via
// the returned CancelFunc rather than by finish being called with an error.
type BlockFunc func(s *Suspension, finish func(val any, err error)) CancelFunc

// WrapFunc transforms a branch's outcome (value or error) after it commits
// but before the result reaches the performing fiber. Composing events
// (Wrap, guard bodies, with-nack bodies, Choice) build up a chain of
// WrapFuncs rather than mutating the branch in place.
type WrapFunc func(val any, err error) (any, error)

func identityWrap(val any, err error) (any, error) { return val, err }

// branch is one committable alternative, fully resolved (its wrap already
// composed with every enclosing combinator) by the time Perform sees it.
type branch struct {
	try     TryFunc
	block   BlockFunc
	wrap    WrapFunc
	nackTag *nackTag
	onLose  func()
}

// Event is a composable, synchronous event: something a fiber can Perform.
// Events are immutable descriptions; all the work happens when build is
// invoked, once per Perform call, by the negotiation driver.
type Event struct {
	build func(compose WrapFunc) ([]branch, error)
}

// Base constructs a primitive event from its try/block hooks and a
// leaf-level result transform.
func Base(try TryFunc, block BlockFunc, wrap WrapFunc) Event {
	if wrap == nil {
		wrap = identityWrap
	}
	return Event{build: func(compose WrapFunc) ([]branch, error) {
		return []branch{{
			try:   try,
			block: block,
			wrap: func(v any, err error) (any, error) {
				return compose(wrap(v, err))
			},
		}}, nil
	}}
}

// Never is an event that is never ready.
func Never() Event {
	return Base(
		func(*Suspension) (bool, any, error) { return false, nil, nil },
		func(*Suspension, func(any, error)) CancelFunc { return func() {} },
		identityWrap,
	)
}

// Always is an event that commits immediately with val.
func Always(val any) Event {
	return Base(
		func(*Suspension) (bool, any, error) { return true, val, nil },
		func(*Suspension, func(any, error)) CancelFunc { return func() {} },
		identityWrap,
	)
}

// Choice combines events into one: performing it is equivalent to
// performing whichever of its branches is, or becomes, ready first. Ties in
// the speculative try pass are broken left to right; ties in the blocked
// pass are broken by scheduler FIFO order (see Suspension.claim).
func Choice(evs ...Event) Event {
	return Event{build: func(compose WrapFunc) ([]branch, error) {
		var all []branch
		for _, e := range evs {
			bs, err := e.build(compose)
			if err != nil {
				return nil, err
			}
			all = append(all, bs...)
		}
		return all, nil
	}}
}

// mapResult is the general form of Wrap: it sees both value and error.
func mapResult(e Event, f func(val any, err error) (any, error)) Event {
	return Event{build: func(compose WrapFunc) ([]branch, error) {
		return e.build(func(v any, err error) (any, error) {
			v2, err2 := f(v, err)
			return compose(v2, err2)
		})
	}}
}

// Wrap transforms an event's committed value, leaving a committed error
// untouched.
func Wrap(e Event, f func(any) any) Event {
	return mapResult(e, func(v any, err error) (any, error) {
		if err != nil {
			return v, err
		}
		return f(v), nil
	})
}

// Guard builds an event lazily, at perform time: th runs at most once per
// Perform call, while the event tree is built before any branch is tried,
// so it runs even when another branch of an enclosing Choice then commits.
// An error returned by th propagates to the
// performing fiber as an ordinary Perform error, not as a committed branch.
func Guard(th func() (Event, error)) Event {
	return Event{build: func(compose WrapFunc) ([]branch, error) {
		ev, err := th()
		if err != nil {
			return nil, err
		}
		return ev.build(compose)
	}}
}

// OrElse is equivalent to Choice(e, Guard(alt)): alt is evaluated on every
// Perform, and its event races e, whichever is ready first winning. It is
// kept as a named combinator because it reads more clearly at call sites
// with a single fallback branch.
func OrElse(e Event, alt func() (Event, error)) Event {
	return Choice(e, Guard(alt))
}

type nackTag struct{}

// withNackCore tags every branch of body with a fresh identity and arranges
// for onLose to run once, after the enclosing Perform commits, if and only
// if the winning branch is not one of body's own.
func withNackCore(body Event, onLose func()) Event {
	tag := &nackTag{}
	return Event{build: func(compose WrapFunc) ([]branch, error) {
		bs, err := body.build(compose)
		if err != nil {
			return nil, err
		}
		for i := range bs {
			bs[i].nackTag = tag
			bs[i].onLose = onLose
		}
		return bs, nil
	}}
}

// WithNack invokes fn with a fresh event that commits exactly when this
// event's negotiation settles on some branch other than one of fn's body's
// own. fn's returned event becomes the performed body.
func WithNack(fn func(nack Event) Event) Event {
	trigger := NewOneshot()
	body := fn(trigger.WaitOp())
	return withNackCore(body, func() { trigger.Signal(nil) })
}

// Bracket acquires a resource, performs use(resource), and guarantees
// release runs exactly once: with aborted=false if use's branch is the one
// that commits, or aborted=true if some other branch of an enclosing choice
// wins instead (or if the whole perform bracket is abandoned).
func Bracket(acquire func() (any, error), release func(resource any, aborted bool), use func(resource any) Event) Event {
	return Guard(func() (Event, error) {
		r, err := acquire()
		if err != nil {
			return Event{}, err
		}
		released := false
		once := func(aborted bool) {
			if released {
				return
			}
			released = true
			release(r, aborted)
		}
		body := mapResult(use(r), func(v any, err error) (any, error) {
			once(false)
			return v, err
		})
		return withNackCore(body, func() { once(true) }), nil
	})
}

// IndexedResult is what FirstReady commits with.
type IndexedResult struct {
	Index int
	Value any
}

// FirstReady performs whichever of evs becomes ready first, returning the
// winning index alongside its value.
func FirstReady(evs []Event) Event {
	return Race(evs, func(idx int, v any, err error) (any, error) {
		return IndexedResult{Index: idx, Value: v}, err
	})
}

// Race performs whichever of evs becomes ready first, passing its index and
// raw outcome through picker before the result reaches the caller.
func Race(evs []Event, picker func(idx int, v any, err error) (any, error)) Event {
	tagged := make([]Event, len(evs))
	for i, e := range evs {
		idx := i
		tagged[i] = mapResult(e, func(v any, err error) (any, error) {
			return picker(idx, v, err)
		})
	}
	return Choice(tagged...)
}

// NamedBranch pairs a label with the event it guards, for NamedChoice.
type NamedBranch struct {
	Name  string
	Event Event
}

// NamedResult is what NamedChoice commits with.
type NamedResult struct {
	Name  string
	Value any
}

// NamedChoice performs whichever named branch becomes ready first,
// returning its name alongside its value. Branches are tried in the order
// given.
func NamedChoice(branches ...NamedBranch) Event {
	evs := make([]Event, len(branches))
	for i, b := range branches {
		name := b.Name
		evs[i] = mapResult(b.Event, func(v any, err error) (any, error) {
			return NamedResult{Name: name, Value: v}, err
		})
	}
	return Choice(evs...)
}

// BooleanResult is what BooleanChoice commits with.
type BooleanResult struct {
	Branch bool
	Value  any
}

// BooleanChoice performs eTrue or eFalse, whichever is ready first,
// reporting which one it was.
func BooleanChoice(eTrue, eFalse Event) Event {
	return Choice(
		mapResult(eTrue, func(v any, err error) (any, error) { return BooleanResult{true, v}, err }),
		mapResult(eFalse, func(v any, err error) (any, error) { return BooleanResult{false, v}, err }),
	)
}

// signalLosingNacks runs the onLose callback of every distinct nack group
// present in branches, except the group (if any) the winner belongs to. It
// is invoked exactly once per Perform call, after a winner is known,
// regardless of whether that winner was decided in the speculative or the
// blocked pass.
func signalLosingNacks(branches []branch, winner *branch) {
	var winTag *nackTag
	if winner != nil {
		winTag = winner.nackTag
	}
	seen := make(map[*nackTag]func())
	order := make([]*nackTag, 0, len(branches))
	for _, b := range branches {
		if b.nackTag == nil {
			continue
		}
		if _, ok := seen[b.nackTag]; !ok {
			order = append(order, b.nackTag)
		}
		seen[b.nackTag] = b.onLose
	}
	for _, tag := range order {
		if tag == winTag {
			continue
		}
		if onLose := seen[tag]; onLose != nil {
			onLose()
		}
	}
}
