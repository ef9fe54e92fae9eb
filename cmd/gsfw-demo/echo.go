package main

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/codec"
	"github.com/relaygrid/gsfw-go/component"
	"github.com/relaygrid/gsfw-go/internal/logging"
	"github.com/relaygrid/gsfw-go/internal/metrics"
	"github.com/relaygrid/gsfw-go/internal/wire"
	"github.com/relaygrid/gsfw-go/registry"
)

// echoBuilder wires an echoComponent into a Game.
type echoBuilder struct {
	reg *registry.Registry

	broker *chanrpc.Broker[*Envelope, Name, error]
	rx     <-chan *chanrpc.ChanCtx[*Envelope, Name, error]
}

func newEchoBuilder(reg *registry.Registry) *echoBuilder {
	return &echoBuilder{reg: reg}
}

func (b *echoBuilder) Name() Name { return NameEcho }

func (b *echoBuilder) SetBroker(broker *chanrpc.Broker[*Envelope, Name, error]) {
	b.broker = broker
}

func (b *echoBuilder) SetRx(rx <-chan *chanrpc.ChanCtx[*Envelope, Name, error]) {
	b.rx = rx
}

func (b *echoBuilder) Build() component.Component[*Envelope, Name, error] {
	return &echoComponent{
		reg:    b.reg,
		broker: b.broker,
		rx:     b.rx,
	}
}

// echoComponent handles every decoded client frame: a Login gets a
// Login acknowledgement echoed straight back, an Echo gets acknowledged
// to the sender and fanned out to the chat component for broadcast.
type echoComponent struct {
	reg    *registry.Registry
	broker *chanrpc.Broker[*Envelope, Name, error]
	rx     <-chan *chanrpc.ChanCtx[*Envelope, Name, error]
}

func (c *echoComponent) Name() Name { return NameEcho }

func (c *echoComponent) Init() (component.Component[*Envelope, Name, error], error) {
	return c, nil
}

func (c *echoComponent) Run() error {
	for ctx := range c.rx {
		env := ctx.Payload()
		switch env.Kind {
		case KindShutdown:
			logging.L().Info("echo: shutting down")
			return nil
		case KindInbound:
			c.handleInbound(ctx, env)
		}
	}
	return nil
}

func (c *echoComponent) handleInbound(ctx *chanrpc.ChanCtx[*Envelope, Name, error], env *Envelope) {
	msg, err := c.reg.DecodeFrame(env.Frame)
	if err != nil {
		logging.L().Warn("echo: decode failed", "session", env.SessionID, "error", err)
		ctx.Err(err)
		return
	}

	switch {
	case env.Frame.MsgID == wire.MsgLogin:
		name, _ := wire.LoginUsername(msg)
		logging.L().Info("echo: login", "session", env.SessionID, "name", name)
		ack, err := c.encode(wire.Login(name))
		if err != nil {
			ctx.Err(err)
			return
		}
		ctx.Ok(&Envelope{Frame: ack})

	case env.Frame.MsgID == wire.MsgEcho:
		payload, _ := wire.EchoPayload(msg)
		ack, err := c.encode(wire.Echo(payload))
		if err != nil {
			ctx.Err(err)
			return
		}
		metrics.IncBrokerCast()
		c.broker.Cast(NameChat, &Envelope{
			Kind:      KindBroadcast,
			SessionID: env.SessionID,
			Except:    env.SessionID,
			Frame:     ack,
		})
		ctx.Ok(&Envelope{Frame: ack})

	default:
		logging.L().Warn("echo: unrecognized message id", "id", env.Frame.MsgID)
		ctx.Err(fmt.Errorf("echo: unhandled message id %d", env.Frame.MsgID))
	}
}

func (c *echoComponent) encode(msg proto.Message) (codec.Frame, error) {
	id, ok := c.reg.IDFor(msg)
	if !ok {
		return codec.Frame{}, fmt.Errorf("echo: %T not registered", msg)
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return codec.Frame{}, err
	}
	return codec.Frame{MsgID: id, Payload: payload}, nil
}
