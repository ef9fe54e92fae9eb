package main

import (
	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/codec"
	"github.com/relaygrid/gsfw-go/component"
	"github.com/relaygrid/gsfw-go/internal/hub"
	"github.com/relaygrid/gsfw-go/internal/logging"
)

// chatBuilder wires a chatComponent into a Game.
type chatBuilder struct {
	broker *chanrpc.Broker[*Envelope, Name, error]
	rx     <-chan *chanrpc.ChanCtx[*Envelope, Name, error]
}

func (b *chatBuilder) Name() Name { return NameChat }

func (b *chatBuilder) SetBroker(broker *chanrpc.Broker[*Envelope, Name, error]) {
	b.broker = broker
}

func (b *chatBuilder) SetRx(rx <-chan *chanrpc.ChanCtx[*Envelope, Name, error]) {
	b.rx = rx
}

func (b *chatBuilder) Build() component.Component[*Envelope, Name, error] {
	h := hub.New[chatDelivery]()
	h.Policy = hub.PolicyKick
	return &chatComponent{rx: b.rx, hub: h, clients: make(map[uint64]*hubSession)}
}

// chatDelivery is what travels through the hub: a broadcast frame
// tagged with the session id it must not be echoed back to.
type chatDelivery struct {
	frame  codec.Frame
	except uint64
}

// hubSession pairs a registered hub.Client with the SessionSink that
// owns the connection, and the goroutine that pumps hub deliveries
// out through the sink.
type hubSession struct {
	id     uint64
	client *hub.Client[chatDelivery]
	sink   SessionSink
	done   chan struct{}
}

// chatComponent fans KindBroadcast envelopes out to every session
// except the sender via a generic broadcast hub, and tracks session
// lifetime via KindSessionJoin/KindSessionLeave.
type chatComponent struct {
	rx      <-chan *chanrpc.ChanCtx[*Envelope, Name, error]
	hub     *hub.Hub[chatDelivery]
	clients map[uint64]*hubSession
}

func (c *chatComponent) Name() Name { return NameChat }

func (c *chatComponent) Init() (component.Component[*Envelope, Name, error], error) {
	return c, nil
}

func (c *chatComponent) Run() error {
	for ctx := range c.rx {
		env := ctx.Payload()
		switch env.Kind {
		case KindSessionJoin:
			c.join(env.SessionID, env.Sink)
			logging.L().Debug("chat: session joined", "session", env.SessionID)
		case KindSessionLeave:
			c.leave(env.SessionID)
			logging.L().Debug("chat: session left", "session", env.SessionID)
		case KindBroadcast:
			c.broadcast(env)
		case KindShutdown:
			for id := range c.clients {
				c.leave(id)
			}
			logging.L().Info("chat: shutting down")
			return nil
		}
	}
	return nil
}

func (c *chatComponent) join(id uint64, sink SessionSink) {
	client := hub.NewClient[chatDelivery](32)
	done := make(chan struct{})
	c.clients[id] = &hubSession{id: id, client: client, sink: sink, done: done}
	c.hub.Add(client)

	go func() {
		defer close(done)
		for {
			select {
			case d, ok := <-client.Out:
				if !ok {
					return
				}
				if d.except == id {
					continue
				}
				if err := sink.Send(d.frame); err != nil {
					logging.L().Warn("chat: broadcast send failed", "session", id, "error", err)
				}
			case <-client.Closed:
				return
			}
		}
	}()
}

func (c *chatComponent) leave(id uint64) {
	sess, ok := c.clients[id]
	if !ok {
		return
	}
	delete(c.clients, id)
	c.hub.Remove(sess.client)
	<-sess.done
	sess.sink.Close()
}

func (c *chatComponent) broadcast(env *Envelope) {
	c.hub.Broadcast(chatDelivery{frame: env.Frame, except: env.Except})
}
