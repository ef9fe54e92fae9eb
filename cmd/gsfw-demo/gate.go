package main

import (
	"context"
	"net"

	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/codec"
	"github.com/relaygrid/gsfw-go/component"
	"github.com/relaygrid/gsfw-go/internal/logging"
	"github.com/relaygrid/gsfw-go/internal/netutil"
	"github.com/relaygrid/gsfw-go/network"
)

// gateBuilder wires a gateComponent into a Game: the component that
// owns the listening socket and the accept loop.
type gateBuilder struct {
	listenAddr string

	broker *chanrpc.Broker[*Envelope, Name, error]
	rx     <-chan *chanrpc.ChanCtx[*Envelope, Name, error]
}

func (b *gateBuilder) Name() Name { return NameGate }

func (b *gateBuilder) SetBroker(broker *chanrpc.Broker[*Envelope, Name, error]) {
	b.broker = broker
}

func (b *gateBuilder) SetRx(rx <-chan *chanrpc.ChanCtx[*Envelope, Name, error]) {
	b.rx = rx
}

func (b *gateBuilder) Build() component.Component[*Envelope, Name, error] {
	return &gateComponent{listenAddr: b.listenAddr, broker: b.broker, rx: b.rx}
}

// gateComponent owns the TCP listener and accept loop. Init binds the
// socket on the component's own goroutine, after Serve has returned, so
// a bind failure ends this component and is logged by Game.Wait; Run
// drives the accept loop until a shutdown envelope closes the listener
// out from under it.
type gateComponent struct {
	listenAddr string
	broker     *chanrpc.Broker[*Envelope, Name, error]
	rx         <-chan *chanrpc.ChanCtx[*Envelope, Name, error]

	ln net.Listener
}

func (c *gateComponent) Name() Name { return NameGate }

func (c *gateComponent) Init() (component.Component[*Envelope, Name, error], error) {
	ln, err := netutil.Listen(context.Background(), c.listenAddr)
	if err != nil {
		return nil, err
	}
	c.ln = ln
	logging.L().Info("gate: listening", "addr", ln.Addr().String())
	return c, nil
}

func (c *gateComponent) Run() error {
	gate := network.NewGate(c.ln)
	factory := newDemoAgentFactory(codec.Codec{}, c.broker)

	serveErr := make(chan error, 1)
	go func() { serveErr <- gate.Serve(factory) }()

	for {
		select {
		case ctx, ok := <-c.rx:
			if !ok {
				return nil
			}
			if ctx.Payload().Kind == KindShutdown {
				logging.L().Info("gate: shutting down")
				_ = gate.Close()
				<-serveErr
				return nil
			}
		case err := <-serveErr:
			logging.L().Error("gate: accept loop stopped", "error", err)
			return err
		}
	}
}
