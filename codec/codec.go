// Package codec implements the wire framing every Gate connection
// speaks: a length-prefixed frame carrying a message id and an opaque
// payload. Decoding is buffer-accumulation style — DecodeStream never
// blocks and never consumes bytes it can't yet make a complete frame
// from, so callers can feed it arbitrarily chopped-up reads from a
// socket.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Frame is one decoded message: its registry id and raw payload bytes
// (still protobuf-encoded; the registry is responsible for unmarshaling
// into a concrete type).
type Frame struct {
	MsgID   int32
	Payload []byte
}

const (
	lengthFieldSize = 4 // u32, big-endian: length of [msg_id][payload]
	msgIDFieldSize  = 4 // i32, big-endian
	headerSize      = lengthFieldSize + msgIDFieldSize
)

// MaxFrameLen bounds the declared payload length a single frame may
// claim, guarding against a corrupt or hostile length field forcing an
// unbounded allocation.
const MaxFrameLen = 16 << 20 // 16 MiB

// ErrFrameTooLarge is returned by DecodeStream when a frame's declared
// length exceeds MaxFrameLen.
var ErrFrameTooLarge = fmt.Errorf("codec: frame length exceeds %d bytes", MaxFrameLen)

// Codec encodes and decodes the [len][msg_id][payload] wire format.
type Codec struct{}

// EncodeTo writes one frame to buf as [u32 len][i32 msg_id][payload].
func (Codec) EncodeTo(buf *bytes.Buffer, msgID int32, payload []byte) error {
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(msgIDFieldSize+len(payload)))
	binary.BigEndian.PutUint32(header[4:8], uint32(msgID))
	if _, err := buf.Write(header[:]); err != nil {
		return err
	}
	_, err := buf.Write(payload)
	return err
}

// Encode returns a frame as a standalone byte slice.
func (c Codec) Encode(msgID int32, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload))
	_ = c.EncodeTo(&buf, msgID, payload)
	return buf.Bytes()
}

// WriteTo encodes and writes one frame directly to w.
func (c Codec) WriteTo(w io.Writer, msgID int32, payload []byte) error {
	_, err := w.Write(c.Encode(msgID, payload))
	return err
}

// DecodeStream drains every complete frame currently buffered in in,
// invoking out for each one in arrival order, and returns with in
// holding only the unconsumed partial-frame remainder. It never blocks
// and never returns an error for "not enough bytes yet" — that is the
// normal, expected steady state of a stream mid-frame.
func (Codec) DecodeStream(in *bytes.Buffer, out func(Frame)) error {
	for {
		data := in.Bytes()
		if len(data) < lengthFieldSize {
			return nil
		}
		bodyLen := binary.BigEndian.Uint32(data[:lengthFieldSize])
		if bodyLen > MaxFrameLen {
			return ErrFrameTooLarge
		}
		if bodyLen < msgIDFieldSize {
			return fmt.Errorf("codec: declared frame length %d shorter than msg id field", bodyLen)
		}
		total := lengthFieldSize + int(bodyLen)
		if len(data) < total {
			return nil
		}

		msgID := int32(binary.BigEndian.Uint32(data[lengthFieldSize:headerSize]))
		payload := make([]byte, total-headerSize)
		copy(payload, data[headerSize:total])

		out(Frame{MsgID: msgID, Payload: payload})
		in.Next(total)
	}
}
