// Package schedule provides a cancellable one-shot deferred callback.
package schedule

import "time"

// Timer holds at most one pending callback. It is not safe for concurrent
// use: the owner guards every call, including Claim from inside the callback,
// with its own lock.
type Timer struct {
	t   *time.Timer
	gen uint64
	due time.Time
}

// Schedule cancels any pending callback and arranges for fn to run once after
// d. fn receives the generation it was scheduled under and must Claim it
// before acting.
func (t *Timer) Schedule(d time.Duration, fn func(gen uint64)) {
	t.Cancel()
	t.gen++
	gen := t.gen
	t.due = time.Now().Add(d)
	t.t = time.AfterFunc(d, func() { fn(gen) })
}

// Cancel drops the pending callback. A callback that already started will
// fail its Claim. Reports whether something was pending.
func (t *Timer) Cancel() bool {
	if t.t == nil {
		return false
	}
	t.t.Stop()
	t.t = nil
	t.gen++
	t.due = time.Time{}
	return true
}

// Claim reports whether gen is still the live schedule and, if so, marks the
// timer as no longer pending.
func (t *Timer) Claim(gen uint64) bool {
	if t.t == nil || gen != t.gen {
		return false
	}
	t.t = nil
	t.due = time.Time{}
	return true
}

func (t *Timer) Pending() bool {
	return t.t != nil
}

// Due returns when the pending callback fires, or the zero time.
func (t *Timer) Due() time.Time {
	return t.due
}
