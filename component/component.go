// Package component defines the interfaces a Game-managed actor and its
// builder must satisfy: a Component is a named unit driven entirely by
// messages arriving on its delivery channel, and a Builder wires in its
// Broker and channel before producing one.
package component

import "github.com/relaygrid/gsfw-go/chanrpc"

// Component is one schedulable unit of a Game.
type Component[P any, N chanrpc.Name, E any] interface {
	// Name returns the component's routing name, matching the name its
	// Builder was registered under.
	Name() N

	// Init performs one-time setup before Run starts processing
	// messages. It returns the (possibly replaced) Component to run, so
	// an implementation can swap in a different receiver after setup —
	// mirroring the reference builder's init-then-run handoff.
	Init() (Component[P, N, E], error)

	// Run processes messages off the delivery channel until told to
	// shut down, then returns.
	Run() error
}

// Builder constructs one Component. A Game calls SetBroker and SetRx
// before Build, so the built Component already has everything it needs
// to talk to the rest of the game.
type Builder[P any, N chanrpc.Name, E any] interface {
	Name() N
	SetBroker(b *chanrpc.Broker[P, N, E])
	SetRx(rx <-chan *chanrpc.ChanCtx[P, N, E])
	Build() Component[P, N, E]
}
