package timer

import (
	"sync/atomic"
	"time"
)

// Timer is a single-shot convenience wrapper around a time.Timer and a
// payload cell. It is independent of any Wheel. Wait yields the payload
// exactly once, whether it is called before or after the timer fires;
// any call after the first returns ErrTimerFinish instead of blocking.
type Timer[T any] struct {
	meta Meta[T]
	t    *time.Timer
	done atomic.Bool
}

// NewTimer starts a single-shot timer that fires at end and carries data.
func NewTimer[T any](start, end time.Time, data T) *Timer[T] {
	return &Timer[T]{
		meta: NewMeta(start, end, data),
		t:    time.NewTimer(time.Until(end)),
	}
}

// ID returns the timer's unique id.
func (t *Timer[T]) ID() uint64 { return t.meta.ID }

// Wait blocks until the timer fires and returns its payload. Calling
// Wait a second time, or after the timer has already been waited on,
// returns ErrTimerFinish without blocking.
func (t *Timer[T]) Wait() (T, error) {
	var zero T
	if t.done.Swap(true) {
		return zero, newPayloadErrEmpty[T](ErrTimerFinish)
	}
	<-t.t.C
	return t.meta.Data, nil
}

// Stop cancels the underlying time.Timer; safe to call after Wait.
func (t *Timer[T]) Stop() bool {
	return t.t.Stop()
}
