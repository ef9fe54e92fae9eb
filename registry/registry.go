// Package registry maps wire-format message ids to concrete protobuf
// message types, and back, so a Gate connection can decode an arbitrary
// frame into the right Go type and encode any registered type onto the
// wire without the caller needing to know its id.
package registry

import (
	"bytes"
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"

	"github.com/relaygrid/gsfw-go/codec"
)

type entry struct {
	name    string
	factory func() proto.Message
}

// Registry is a concrete id<->type table. The zero value is not usable;
// construct with New.
type Registry struct {
	byID   map[int32]entry
	byType map[reflect.Type]int32
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[int32]entry),
		byType: make(map[reflect.Type]int32),
	}
}

// Register binds msgID to the type produced by factory. name is used
// only for diagnostics (panic/error messages); it is conventionally the
// protobuf message's short name. Register panics on a duplicate id or
// duplicate Go type, since that can only be a programming mistake fixed
// at compile time, not a runtime condition callers should handle.
func (r *Registry) Register(msgID int32, name string, factory func() proto.Message) {
	if _, dup := r.byID[msgID]; dup {
		panic(fmt.Sprintf("registry: message id %d already registered", msgID))
	}
	sample := factory()
	t := reflect.TypeOf(sample)
	if _, dup := r.byType[t]; dup {
		panic(fmt.Sprintf("registry: type %s already registered under a different id", t))
	}
	r.byID[msgID] = entry{name: name, factory: factory}
	r.byType[t] = msgID
}

// Count returns the number of registered message types.
func (r *Registry) Count() int { return len(r.byID) }

// IDFor returns the wire id a registered message type was bound to.
func (r *Registry) IDFor(msg proto.Message) (int32, bool) {
	id, ok := r.byType[reflect.TypeOf(msg)]
	return id, ok
}

// DecodeFrame looks up f.MsgID and unmarshals f.Payload into a fresh
// instance of the bound type.
func (r *Registry) DecodeFrame(f codec.Frame) (proto.Message, error) {
	e, ok := r.byID[f.MsgID]
	if !ok {
		return nil, &UnknownMessageError{ID: f.MsgID}
	}
	msg := e.factory()
	if err := proto.Unmarshal(f.Payload, msg); err != nil {
		return nil, fmt.Errorf("registry: decode %s (id=%d): %w", e.name, f.MsgID, err)
	}
	return msg, nil
}

// EncodedLen returns the length of msg's frame body: the 4-byte msg id
// field plus the marshaled payload. It excludes the 4-byte length prefix
// that EncodeTo writes in front of that body.
func (r *Registry) EncodedLen(msg proto.Message) (int, error) {
	if _, ok := r.IDFor(msg); !ok {
		return 0, &UnregisteredTypeError{Type: reflect.TypeOf(msg)}
	}
	return 4 + proto.Size(msg), nil
}

// EncodeTo writes msg as a length-prefixed frame ([len][msg_id][payload])
// to buf using c.
func (r *Registry) EncodeTo(c codec.Codec, buf *bytes.Buffer, msg proto.Message) error {
	id, ok := r.IDFor(msg)
	if !ok {
		return &UnregisteredTypeError{Type: reflect.TypeOf(msg)}
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("registry: encode id=%d: %w", id, err)
	}
	return c.EncodeTo(buf, id, payload)
}

// Encode marshals msg into a standalone length-prefixed frame.
func (r *Registry) Encode(c codec.Codec, msg proto.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.EncodeTo(c, &buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
