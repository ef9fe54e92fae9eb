// Package wire is the demo protocol: a tiny message catalog bound to a
// registry.Registry, used by cmd/gsfw-demo to exercise real protobuf
// encode/decode_frame round trips end to end.
//
// There is no protoc available in this environment to generate
// purpose-built .pb.go types, so the catalog is built from the
// standard library-adjacent wrapperspb messages shipped with
// google.golang.org/protobuf — these are already-compiled
// proto.Message values, which is what registry.Registry requires, and
// wrapping them in named constructors keeps call sites readable as
// Login/Echo/Shutdown rather than bare StringValue/BytesValue/BoolValue.
package wire

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/relaygrid/gsfw-go/registry"
)

// Message ids for the demo protocol.
const (
	MsgLogin    int32 = 1
	MsgEcho     int32 = 2
	MsgShutdown int32 = 3
)

// NewRegistry builds a registry.Registry bound to the demo protocol.
func NewRegistry() *registry.Registry {
	r := registry.New()
	r.Register(MsgLogin, "Login", func() proto.Message { return new(wrapperspb.StringValue) })
	r.Register(MsgEcho, "Echo", func() proto.Message { return new(wrapperspb.BytesValue) })
	r.Register(MsgShutdown, "Shutdown", func() proto.Message { return new(wrapperspb.BoolValue) })
	return r
}

// Login builds a login message carrying the given username.
func Login(username string) proto.Message { return wrapperspb.String(username) }

// Echo builds an echo message carrying an arbitrary payload.
func Echo(payload []byte) proto.Message { return wrapperspb.Bytes(payload) }

// Shutdown builds the demo's shutdown message; graceful distinguishes a
// clean stop from a forced one for components that care.
func Shutdown(graceful bool) proto.Message { return wrapperspb.Bool(graceful) }

// LoginUsername extracts the username from a decoded Login message.
func LoginUsername(msg proto.Message) (string, bool) {
	sv, ok := msg.(*wrapperspb.StringValue)
	if !ok {
		return "", false
	}
	return sv.GetValue(), true
}

// EchoPayload extracts the payload from a decoded Echo message.
func EchoPayload(msg proto.Message) ([]byte, bool) {
	bv, ok := msg.(*wrapperspb.BytesValue)
	if !ok {
		return nil, false
	}
	return bv.GetValue(), true
}

// ShutdownGraceful extracts the graceful flag from a decoded Shutdown
// message.
func ShutdownGraceful(msg proto.Message) (bool, bool) {
	bv, ok := msg.(*wrapperspb.BoolValue)
	if !ok {
		return false, false
	}
	return bv.GetValue(), true
}
