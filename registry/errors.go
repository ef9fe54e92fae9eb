package registry

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// UnknownMessageError is returned by DecodeFrame for a frame whose
// msg id was never registered.
type UnknownMessageError struct {
	ID int32
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("registry: unknown message id %d", e.ID)
}

// UnregisteredTypeError is returned when encoding a proto.Message whose
// concrete Go type was never bound to an id.
type UnregisteredTypeError struct {
	Type reflect.Type
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("registry: type %s was never registered", e.Type)
}

// VariantCastError reports that a decoded message was not the concrete
// type the caller expected — the Go analogue of the reference
// implementation's "mismatch variant when cast to %s" error, which
// carries the target type's static name.
type VariantCastError struct {
	Target string
}

func (e *VariantCastError) Error() string {
	return fmt.Sprintf("registry: mismatch variant when cast to %s", e.Target)
}

// As type-asserts msg to T, returning a *VariantCastError naming T if it
// doesn't match. Used by component Run loops to narrow a decoded
// proto.Message to the concrete type they expect after a successful
// DecodeFrame.
func As[T proto.Message](msg proto.Message) (T, error) {
	v, ok := msg.(T)
	if !ok {
		var zero T
		return zero, &VariantCastError{Target: fmt.Sprintf("%T", zero)}
	}
	return v, nil
}
