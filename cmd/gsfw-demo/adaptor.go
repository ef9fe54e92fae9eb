package main

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/codec"
	"github.com/relaygrid/gsfw-go/internal/metrics"
	"github.com/relaygrid/gsfw-go/network"
)

// sessionAdaptor is the per-connection network.Adaptor: it forwards
// decoded frames into the echo component via Call (so it can hand the
// acknowledgement straight back to this connection) and delivers chat
// broadcasts to the connection via its outbox.
type sessionAdaptor struct {
	id     uint64
	echoTx *chanrpc.CallTx[*Envelope, Name, error]
	chatTx *chanrpc.CastTx[*Envelope, Name, error]

	mu     sync.Mutex
	closed bool
	outbox chan codec.Frame
}

func newSessionAdaptor(id uint64, echoTx *chanrpc.CallTx[*Envelope, Name, error], chatTx *chanrpc.CastTx[*Envelope, Name, error]) *sessionAdaptor {
	return &sessionAdaptor{id: id, echoTx: echoTx, chatTx: chatTx, outbox: make(chan codec.Frame, 32)}
}

func (a *sessionAdaptor) Ready(net.Conn) error {
	metrics.IncBrokerCast()
	a.chatTx.Cast(&Envelope{Kind: KindSessionJoin, SessionID: a.id, Sink: sessionSink{a}})
	return nil
}

// Send implements network.Adaptor: it carries a frame decoded off the
// wire to the echo component and, if echo hands back an
// acknowledgement, pushes that ack straight into this connection's own
// outbox.
func (a *sessionAdaptor) Send(f codec.Frame) error {
	metrics.IncGateFramesRx()
	metrics.IncBrokerCall()
	res := a.echoTx.Call(&Envelope{Kind: KindInbound, SessionID: a.id, Frame: f})
	if res.IsErr {
		metrics.IncBrokerCallError()
		metrics.IncError(metrics.ErrDecode)
		return res.Err
	}
	if res.Val != nil {
		_ = a.push(res.Val.Frame)
	}
	return nil
}

func (a *sessionAdaptor) Recv() (codec.Frame, bool, error) {
	f, ok := <-a.outbox
	return f, ok, nil
}

func (a *sessionAdaptor) push(f codec.Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	select {
	case a.outbox <- f:
		metrics.IncGateFramesTx()
		return nil
	default:
		return nil // drop on a full outbox rather than block the chat fan-out
	}
}

func (a *sessionAdaptor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.outbox)
}

// sessionSink adapts a sessionAdaptor to the SessionSink interface the
// chat component uses to deliver broadcasts — a distinct type because
// Adaptor.Send and SessionSink.Send mean opposite directions (client
// frame in vs. broadcast frame out) and can't share one method.
type sessionSink struct{ a *sessionAdaptor }

func (s sessionSink) Send(f codec.Frame) error { return s.a.push(f) }
func (s sessionSink) Close()                   { s.a.Close() }

var (
	_ network.Adaptor = (*sessionAdaptor)(nil)
	_ SessionSink      = sessionSink{}
)

// demoAgentFactory builds one sessionAdaptor per connection and
// notifies chat when the connection ends, so its SessionSink is
// released instead of leaking.
type demoAgentFactory struct {
	codec  codec.Codec
	echoTx *chanrpc.CallTx[*Envelope, Name, error]
	chatTx *chanrpc.CastTx[*Envelope, Name, error]
	nextID atomic.Uint64
}

func newDemoAgentFactory(c codec.Codec, broker *chanrpc.Broker[*Envelope, Name, error]) *demoAgentFactory {
	return &demoAgentFactory{
		codec:  c,
		echoTx: broker.CallTx(NameEcho),
		chatTx: broker.CastTx(NameChat),
	}
}

func (f *demoAgentFactory) Handle(conn net.Conn) error {
	id := f.nextID.Add(1)
	metrics.IncGateConnection()
	adaptor := newSessionAdaptor(id, f.echoTx, f.chatTx)
	svc := network.NewAgentService(f.codec, singleAdaptorBuilder{adaptor})
	err := svc.Handle(conn)
	metrics.IncBrokerCast()
	f.chatTx.Cast(&Envelope{Kind: KindSessionLeave, SessionID: id})
	return err
}

// singleAdaptorBuilder wraps an adaptor that already exists by the
// time AgentService asks its AdaptorBuilder to Build one, since this
// demo needs the session id assigned before Ready runs.
type singleAdaptorBuilder struct{ adaptor network.Adaptor }

func (b singleAdaptorBuilder) Build() network.Adaptor { return b.adaptor }
