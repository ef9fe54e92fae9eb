package timer

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Classify with errors.Is against these values;
// PayloadError, RecordError and BatchError all Unwrap to one of them.
var (
	ErrTimerFinish   = errors.New("timer: attempt to poll a timer that has already fired")
	ErrTimeElapse    = errors.New("timer: trigger time already elapsed")
	ErrOverflow      = errors.New("timer: trigger time overflows the wheel's round")
	ErrChannel       = errors.New("timer: control channel closed")
	ErrBatchChannel  = errors.New("timer: control channel closed during batch submission")
	ErrNoRecord      = errors.New("timer: no such timer")
	ErrDupTimer      = errors.New("timer: duplicate timer id in batch")
	ErrChainDuration = errors.New("timer: parent slot duration does not match child round duration")
	ErrNoWheel       = errors.New("timer: no wheel configured")
)

// PayloadError wraps a sentinel error with the payload the caller tried
// to submit, when one could be recovered (e.g. TimeElapse, Overflow,
// Channel all return the caller's data back so it isn't silently lost).
type PayloadError[T any] struct {
	err     error
	payload T
	has     bool
}

func newPayloadErr[T any](err error, payload T) *PayloadError[T] {
	return &PayloadError[T]{err: err, payload: payload, has: true}
}

func newPayloadErrEmpty[T any](err error) *PayloadError[T] {
	return &PayloadError[T]{err: err}
}

func (e *PayloadError[T]) Error() string { return e.err.Error() }
func (e *PayloadError[T]) Unwrap() error { return e.err }

// Payload returns the data the caller attempted to submit and whether it
// was recoverable at all (errors from calls that take no payload, such
// as Cancel, Accelerate, Delay, Trigger or a second Timer.Wait, carry
// none).
func (e *PayloadError[T]) Payload() (T, bool) {
	return e.payload, e.has
}

// RecordError wraps ErrNoRecord/ErrDupTimer with the offending timer id.
type RecordError struct {
	err error
	id  uint64
}

func (e *RecordError) Error() string { return fmt.Sprintf("%s: id=%d", e.err.Error(), e.id) }
func (e *RecordError) Unwrap() error { return e.err }
func (e *RecordError) ID() uint64    { return e.id }

func errNoRecord(id uint64) *RecordError { return &RecordError{err: ErrNoRecord, id: id} }
func errDupTimer(id uint64) *RecordError { return &RecordError{err: ErrDupTimer, id: id} }

// BatchError wraps ErrBatchChannel with every Meta that was in flight
// when the control channel closed, so the caller can retry or otherwise
// reclaim the payloads.
type BatchError[T any] struct {
	err   error
	Metas []Meta[T]
}

func (e *BatchError[T]) Error() string { return e.err.Error() }
func (e *BatchError[T]) Unwrap() error { return e.err }

func newBatchErr[T any](metas []Meta[T]) *BatchError[T] {
	return &BatchError[T]{err: ErrBatchChannel, Metas: metas}
}
