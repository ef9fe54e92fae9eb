package main

import (
	"sync"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/relaygrid/gsfw-go/chanrpc"
	"github.com/relaygrid/gsfw-go/codec"
	"github.com/relaygrid/gsfw-go/internal/hub"
	"github.com/relaygrid/gsfw-go/internal/wire"
)

type testSink struct {
	ch     chan codec.Frame
	closed chan struct{}
}

func newTestSink() *testSink {
	return &testSink{ch: make(chan codec.Frame, 8), closed: make(chan struct{})}
}

func (s *testSink) Send(f codec.Frame) error {
	s.ch <- f
	return nil
}

func (s *testSink) Close() { close(s.closed) }

func encodeForTest(t *testing.T, reg interface {
	IDFor(proto.Message) (int32, bool)
}, msg proto.Message) codec.Frame {
	t.Helper()
	id, ok := reg.IDFor(msg)
	if !ok {
		t.Fatalf("%T not registered", msg)
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return codec.Frame{MsgID: id, Payload: payload}
}

func TestEchoAndChatWiring(t *testing.T) {
	reg := demoRegistry()
	echoCh := make(chan *chanrpc.ChanCtx[*Envelope, Name, error], 16)
	chatCh := make(chan *chanrpc.ChanCtx[*Envelope, Name, error], 16)
	txMap := map[Name]chan *chanrpc.ChanCtx[*Envelope, Name, error]{
		NameEcho: echoCh,
		NameChat: chatCh,
	}

	echoBroker := chanrpc.NewBroker[*Envelope, Name, error](NameEcho, txMap)
	gateBroker := chanrpc.NewBroker[*Envelope, Name, error](NameGate, txMap)

	echoComp := &echoComponent{reg: reg, broker: echoBroker, rx: echoCh}
	chatComp := &chatComponent{rx: chatCh, hub: hub.New[chatDelivery](), clients: make(map[uint64]*hubSession)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = echoComp.Run() }()
	go func() { defer wg.Done(); _ = chatComp.Run() }()

	sink1 := newTestSink()
	sink2 := newTestSink()
	chatCastTx := gateBroker.CastTx(NameChat)
	chatCastTx.Cast(&Envelope{Kind: KindSessionJoin, SessionID: 1, Sink: sink1})
	chatCastTx.Cast(&Envelope{Kind: KindSessionJoin, SessionID: 2, Sink: sink2})

	echoCallTx := gateBroker.CallTx(NameEcho)

	loginFrame := encodeForTest(t, reg, wire.Login("alice"))
	res := echoCallTx.Call(&Envelope{Kind: KindInbound, SessionID: 1, Frame: loginFrame})
	if res.IsErr {
		t.Fatalf("login call: %v", res.Err)
	}
	ackMsg, err := reg.DecodeFrame(res.Val.Frame)
	if err != nil {
		t.Fatalf("decode login ack: %v", err)
	}
	if name, ok := wire.LoginUsername(ackMsg); !ok || name != "alice" {
		t.Fatalf("login ack username = %q, %v", name, ok)
	}

	echoFrame := encodeForTest(t, reg, wire.Echo([]byte("hello")))
	res = echoCallTx.Call(&Envelope{Kind: KindInbound, SessionID: 1, Frame: echoFrame})
	if res.IsErr {
		t.Fatalf("echo call: %v", res.Err)
	}

	select {
	case f := <-sink2.ch:
		msg, err := reg.DecodeFrame(f)
		if err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if payload, ok := wire.EchoPayload(msg); !ok || string(payload) != "hello" {
			t.Fatalf("broadcast payload = %q, %v", payload, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session 2 did not receive the broadcast")
	}

	select {
	case f := <-sink1.ch:
		t.Fatalf("sender should not receive its own broadcast, got %+v", f)
	default:
	}

	gateBroker.Cast(NameEcho, &Envelope{Kind: KindShutdown})
	gateBroker.Cast(NameChat, &Envelope{Kind: KindShutdown})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("components did not shut down")
	}
}
