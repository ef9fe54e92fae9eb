// Package chanrpc implements the message envelope and routing handles
// components use to talk to each other: a typed ChanCtx carries a
// take-once payload plus an optional one-shot reply sink, and Broker
// resolves a component name to its inbound channel.
package chanrpc

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/relaygrid/gsfw-go/internal/logging"
)

// Name is the constraint a component-name type must satisfy to be used
// as a routing key: comparable so it can key a map, Stringer so it can
// be logged and embedded in panic/error messages.
type Name interface {
	comparable
	fmt.Stringer
}

type reply[P any, E any] struct {
	val   P
	err   E
	isErr bool
}

// Result is the outcome of a Call: either a successful reply value or
// an error of type E, carried together since E need not implement the
// error interface.
type Result[P any, E any] struct {
	Val   P
	Err   E
	IsErr bool
}

// ChanCtx is the envelope every message travels in between components:
// the payload, the sender's name, and — for a call — the one-shot
// channel its reply is sent back over.
type ChanCtx[P any, N Name, E any] struct {
	payload   P
	taken     bool
	from      N
	replyCh   chan reply[P, E]
	isRequest bool

	mu      sync.Mutex
	replied bool
}

// NewCast builds a fire-and-forget envelope. Exported so callers that
// hold a raw delivery channel directly — the Game's shutdown fan-out,
// most notably — can build an envelope without going through a Broker.
func NewCast[P any, N Name, E any](msg P, from N) *ChanCtx[P, N, E] {
	return &ChanCtx[P, N, E]{payload: msg, from: from}
}

// newCall allocates a one-shot reply channel and arms a finalizer that
// closes it if the ctx is ever garbage-collected without a reply — Go
// has no deterministic Drop, so this is the closest equivalent to the
// reference implementation's oneshot::Sender being dropped along with
// the ctx: the reply future (here, the receive in Call) observes the
// channel close instead of blocking forever.
func newCall[P any, N Name, E any](msg P, from N) (*ChanCtx[P, N, E], <-chan reply[P, E]) {
	ch := make(chan reply[P, E], 1)
	c := &ChanCtx[P, N, E]{payload: msg, from: from, replyCh: ch, isRequest: true}
	runtime.SetFinalizer(c, func(c *ChanCtx[P, N, E]) { c.closeUnanswered() })
	return c, ch
}

// closeUnanswered closes replyCh if no reply was ever sent. Called by
// the finalizer installed in newCall.
func (c *ChanCtx[P, N, E]) closeUnanswered() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replied {
		return
	}
	c.replied = true
	close(c.replyCh)
}

// From returns the name of the component that sent this message.
func (c *ChanCtx[P, N, E]) From() N { return c.from }

// IsRequest reports whether a reply is expected (the envelope arrived
// via Call rather than Cast).
func (c *ChanCtx[P, N, E]) IsRequest() bool { return c.isRequest }

// Payload returns the envelope's message. Calling it a second time on
// the same envelope panics — an envelope is consumed exactly once by
// whichever component handler receives it off its delivery channel.
func (c *ChanCtx[P, N, E]) Payload() P {
	if c.taken {
		panic("chanrpc: calling Payload twice on the same ChanCtx")
	}
	c.taken = true
	return c.payload
}

// Ok replies to a call with a successful value. It is a no-op (beyond a
// diagnostic) if this envelope came from Cast, which has no reply sink.
func (c *ChanCtx[P, N, E]) Ok(val P) {
	c.reply(reply[P, E]{val: val})
}

// Err replies to a call with a failure value.
func (c *ChanCtx[P, N, E]) Err(err E) {
	c.reply(reply[P, E]{err: err, isErr: true})
}

func (c *ChanCtx[P, N, E]) reply(r reply[P, E]) {
	if c.replyCh == nil {
		logging.L().Warn("chanrpc: attempt to reply to a non-request ctx", "from", c.from)
		return
	}
	c.mu.Lock()
	if c.replied {
		c.mu.Unlock()
		logging.L().Warn("chanrpc: ctx already replied to, dropping second reply", "from", c.from)
		return
	}
	c.replied = true
	c.mu.Unlock()
	// The finalizer's only job is to close replyCh on an unanswered
	// drop; since we just replied, disarm it rather than leave it
	// pinning this ctx in the finalizer queue.
	runtime.SetFinalizer(c, nil)
	// The reply channel is buffered to exactly one slot, so this never
	// blocks: at most one reply is ever sent per call.
	c.replyCh <- r
}
