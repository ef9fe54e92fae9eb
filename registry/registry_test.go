package registry

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/relaygrid/gsfw-go/codec"
)

const (
	msgIDString int32 = 1
	msgIDInt32  int32 = 2
)

func newTestRegistry() *Registry {
	r := New()
	r.Register(msgIDString, "StringValue", func() proto.Message { return &wrapperspb.StringValue{} })
	r.Register(msgIDInt32, "Int32Value", func() proto.Message { return &wrapperspb.Int32Value{} })
	return r
}

func TestRegistryEncodeDecodeRoundTrip(t *testing.T) {
	r := newTestRegistry()
	var c codec.Codec

	msg := wrapperspb.String("hello")
	frameBytes, err := r.Encode(c, msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got []codec.Frame
	buf := bytes.NewBuffer(frameBytes)
	if err := c.DecodeStream(buf, func(f codec.Frame) { got = append(got, f) }); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}

	decoded, err := r.DecodeFrame(got[0])
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	sv, err := As[*wrapperspb.StringValue](decoded)
	if err != nil {
		t.Fatalf("As[*StringValue]: %v", err)
	}
	if sv.GetValue() != "hello" {
		t.Fatalf("GetValue() = %q, want %q", sv.GetValue(), "hello")
	}
}

func TestRegistryDecodeUnknownID(t *testing.T) {
	r := newTestRegistry()
	_, err := r.DecodeFrame(codec.Frame{MsgID: 999})
	if _, ok := err.(*UnknownMessageError); !ok {
		t.Fatalf("expected *UnknownMessageError, got %v (%T)", err, err)
	}
}

func TestRegistryEncodeUnregisteredType(t *testing.T) {
	r := newTestRegistry()
	var c codec.Codec
	_, err := r.Encode(c, wrapperspb.Bool(true))
	if _, ok := err.(*UnregisteredTypeError); !ok {
		t.Fatalf("expected *UnregisteredTypeError, got %v (%T)", err, err)
	}
}

func TestAsVariantMismatch(t *testing.T) {
	r := newTestRegistry()
	var c codec.Codec
	frameBytes, _ := r.Encode(c, wrapperspb.Int32(7))

	var got []codec.Frame
	buf := bytes.NewBuffer(frameBytes)
	_ = c.DecodeStream(buf, func(f codec.Frame) { got = append(got, f) })
	decoded, err := r.DecodeFrame(got[0])
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if _, err := As[*wrapperspb.StringValue](decoded); err == nil {
		t.Fatal("expected a VariantCastError")
	} else if _, ok := err.(*VariantCastError); !ok {
		t.Fatalf("expected *VariantCastError, got %v (%T)", err, err)
	}
}

func TestRegisterDuplicateIDPanics(t *testing.T) {
	r := New()
	r.Register(1, "A", func() proto.Message { return &wrapperspb.StringValue{} })
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for duplicate message id")
		}
	}()
	r.Register(1, "B", func() proto.Message { return &wrapperspb.Int32Value{} })
}
