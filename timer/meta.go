// Package timer implements a hierarchical timer-wheel scheduler: a single
// background actor (Inner) owns a ring of time slots and delivers elapsed
// timers in time-ordered batches to a client-facing Proxy (Wheel).
//
// The wheel's round window is fixed at construction time and never
// advances: slot addressing is computed against the frozen start instant
// for the lifetime of the wheel, which makes this a bounded-horizon
// scheduler rather than a perpetually-rotating one. Once the wheel's
// round elapses, every further Dispatch/DispatchUntil/BatchAdd call fails
// with ErrOverflow. This mirrors the reference implementation's Inner
// actor, which never mutates its start instant on Tick; see DESIGN.md for
// the decision record.
package timer

import (
	"sync/atomic"
	"time"
)

var timerID atomic.Uint64

func init() {
	timerID.Store(1)
}

func nextTimerID() uint64 {
	return timerID.Add(1) - 1
}

// Snapshot is the Proxy-side immutable-ish record of a submitted timer:
// its id plus the start/end instants as last known by the Proxy. It is
// updated locally (never round-tripped from Inner) whenever Accelerate or
// Delay succeeds, so it always mirrors the live end deadline.
type Snapshot struct {
	ID    uint64
	Start time.Time
	End   time.Time
}

// Meta is the payload-carrying record a Wheel holds for one live timer.
// Data is valid until it is delivered by Tick or Trigger, at which point
// ownership passes to the caller.
type Meta[T any] struct {
	ID    uint64
	Start time.Time
	End   time.Time
	Data  T
}

// NewMeta allocates a fresh monotonically-increasing timer id and wraps
// start/end/data into a Meta.
func NewMeta[T any](start, end time.Time, data T) Meta[T] {
	return Meta[T]{
		ID:    nextTimerID(),
		Start: start,
		End:   end,
		Data:  data,
	}
}
