package main

import "github.com/relaygrid/gsfw-go/codec"

// Name is the routing key for the demo's components.
type Name string

func (n Name) String() string { return string(n) }

const (
	NameEcho Name = "echo"
	NameChat Name = "chat"
	NameGate Name = "gate"
)

// Kind tags what an Envelope is asking its recipient component to do.
type Kind int

const (
	KindShutdown Kind = iota
	KindSessionJoin
	KindSessionLeave
	KindInbound
	KindBroadcast
)

// Envelope is the single message type shared by every component in
// this demo's Game. A single sum type keeps chanrpc's P type parameter
// concrete across all three components, the way an actor mailbox typically
// carries one closed message enum rather than one type per component.
type Envelope struct {
	Kind      Kind
	SessionID uint64
	Frame     codec.Frame // populated for KindInbound and KindBroadcast
	Except    uint64      // KindBroadcast: session id to skip (the sender)
	Sink      SessionSink // KindSessionJoin: where to deliver broadcasts
}

// SessionSink is how the chat component pushes a broadcast frame back
// out to a connected session without knowing anything about net.Conn.
type SessionSink interface {
	Send(f codec.Frame) error
	Close()
}
