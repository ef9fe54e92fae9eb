package chanrpc

import "fmt"

// CallTx is a prebound request/reply handle to one destination
// component, constructed via Broker.CallTx.
type CallTx[P any, N Name, E any] struct {
	from N
	to   N
	tx   chan *ChanCtx[P, N, E]
}

func newCallTx[P any, N Name, E any](from, to N, tx chan *ChanCtx[P, N, E]) *CallTx[P, N, E] {
	return &CallTx[P, N, E]{from: from, to: to, tx: tx}
}

// Call sends msg to the bound destination and blocks until its reply
// arrives. A dropped reply sink panics; see Broker.Call.
func (c *CallTx[P, N, E]) Call(msg P) Result[P, E] {
	ctx, rx := newCall[P, N, E](msg, c.from)
	c.tx <- ctx
	r, ok := <-rx
	if !ok {
		panic(fmt.Sprintf("chanrpc: reply sink for call to %s was dropped without a reply", c.to))
	}
	return Result[P, E]{Val: r.val, Err: r.err, IsErr: r.isErr}
}
