package chanrpc

import "fmt"

// Broker is a named routing handle over a component runtime's delivery
// channel table. Every component is constructed with a Broker bound to
// its own name and the full table, so it can Cast or Call any other
// registered component without knowing how the table itself is built.
//
// Go's channels make no sync/async distinction the way the reference
// implementation's tokio mpsc sender does, so the separate
// cast/blocking_cast and call/blocking_call pairs collapse into single
// Cast/Call methods here: a channel send already blocks the calling
// goroutine exactly as an awaited send would a calling task.
type Broker[P any, N Name, E any] struct {
	name  N
	txMap map[N]chan *ChanCtx[P, N, E]
}

// NewBroker builds a Broker for `name` over the given routing table. The
// table is shared, not copied: every component's Broker sees the same
// set of channels, which is how components reach each other.
func NewBroker[P any, N Name, E any](name N, txMap map[N]chan *ChanCtx[P, N, E]) *Broker[P, N, E] {
	return &Broker[P, N, E]{name: name, txMap: txMap}
}

// Name returns the component name this broker was bound to.
func (b *Broker[P, N, E]) Name() N { return b.name }

func (b *Broker[P, N, E]) tx(name N) chan *ChanCtx[P, N, E] {
	ch, ok := b.txMap[name]
	if !ok {
		panic(fmt.Sprintf("chanrpc: no component registered under name %s", name))
	}
	return ch
}

// CastTx returns a prebound fire-and-forget handle to `to`.
func (b *Broker[P, N, E]) CastTx(to N) *CastTx[P, N, E] {
	return newCastTx[P, N, E](b.name, b.tx(to))
}

// CallTx returns a prebound request/reply handle to `to`.
func (b *Broker[P, N, E]) CallTx(to N) *CallTx[P, N, E] {
	return newCallTx[P, N, E](b.name, to, b.tx(to))
}

// Cast sends msg to `to` without waiting for a reply.
func (b *Broker[P, N, E]) Cast(to N, msg P) {
	b.tx(to) <- NewCast[P, N, E](msg, b.name)
}

// Call sends msg to `to` and blocks until its reply arrives. A dropped
// reply sink — the receiving ChanCtx discarded without Ok/Err — is a
// framework invariant violation, not a recoverable failure, and panics
// rather than returning a zero Result.
func (b *Broker[P, N, E]) Call(to N, msg P) Result[P, E] {
	ctx, rx := newCall[P, N, E](msg, b.name)
	b.tx(to) <- ctx
	r, ok := <-rx
	if !ok {
		panic(fmt.Sprintf("chanrpc: reply sink for call to %s was dropped without a reply", to))
	}
	return Result[P, E]{Val: r.val, Err: r.err, IsErr: r.isErr}
}
