package chanrpc

// CastTx is a prebound, fire-and-forget handle to one destination
// component: the sender's name and the destination's delivery channel
// are fixed at construction (via Broker.CastTx), so repeated casts don't
// re-resolve the routing table.
type CastTx[P any, N Name, E any] struct {
	from N
	tx   chan *ChanCtx[P, N, E]
}

func newCastTx[P any, N Name, E any](from N, tx chan *ChanCtx[P, N, E]) *CastTx[P, N, E] {
	return &CastTx[P, N, E]{from: from, tx: tx}
}

// Cast sends msg to the bound destination, blocking only until the
// destination's delivery channel has room.
func (c *CastTx[P, N, E]) Cast(msg P) {
	c.tx <- NewCast[P, N, E](msg, c.from)
}
