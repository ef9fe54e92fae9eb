package network

import (
	"bytes"
	"fmt"
	"net"

	"github.com/relaygrid/gsfw-go/codec"
)

const readBufSize = 4096

// AgentFactory hands one accepted net.Conn to whatever drives its
// lifetime. This is the Go interface the reference implementation's
// `tower::Service<TcpStream>` plumbing folds into: there is no `tower`
// in this module's dependency surface, so a single-method interface
// serves the same pluggable-dispatch role.
type AgentFactory interface {
	Handle(conn net.Conn) error
}

// AgentService is the default AgentFactory: it frames a connection with
// a codec.Codec, builds one Adaptor per connection via an
// AdaptorBuilder, and drives the read-decode-dispatch / recv-encode-
// write loop between them until either side closes or errors.
type AgentService struct {
	codec          codec.Codec
	adaptorBuilder AdaptorBuilder
}

// NewAgentService builds an AgentFactory around c and ab.
func NewAgentService(c codec.Codec, ab AdaptorBuilder) *AgentService {
	return &AgentService{codec: c, adaptorBuilder: ab}
}

type readResult struct {
	frame codec.Frame
	err   error
}

type sendResult struct {
	frame codec.Frame
	err   error
}

// Handle implements AgentFactory. It blocks for the life of the
// connection.
func (s *AgentService) Handle(conn net.Conn) error {
	adaptor := s.adaptorBuilder.Build()
	if err := adaptor.Ready(conn); err != nil {
		return fmt.Errorf("%w: %v", ErrAdaptorReady, err)
	}

	readCh := make(chan readResult, 16)
	go s.readLoop(conn, readCh)

	sendCh := make(chan sendResult, 16)
	go s.sendLoop(adaptor, sendCh)

	for {
		select {
		case item, ok := <-readCh:
			if !ok {
				return ErrReadZero
			}
			if item.err != nil {
				return fmt.Errorf("%w: %v", ErrReadZero, item.err)
			}
			if err := adaptor.Send(item.frame); err != nil {
				return fmt.Errorf("%w: %v", ErrAdaptorSend, err)
			}
		case item, ok := <-sendCh:
			if !ok {
				return nil
			}
			if item.err != nil {
				return fmt.Errorf("%w: %v", ErrAdaptorRecv, item.err)
			}
			if err := s.codec.WriteTo(conn, item.frame.MsgID, item.frame.Payload); err != nil {
				return fmt.Errorf("%w: %v", ErrSinkSend, err)
			}
		}
	}
}

func (s *AgentService) readLoop(conn net.Conn, out chan<- readResult) {
	defer close(out)
	buf := new(bytes.Buffer)
	tmp := make([]byte, readBufSize)
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
			decErr := s.codec.DecodeStream(buf, func(f codec.Frame) {
				out <- readResult{frame: f}
			})
			if decErr != nil {
				out <- readResult{err: decErr}
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *AgentService) sendLoop(a Adaptor, out chan<- sendResult) {
	defer close(out)
	for {
		frame, ok, err := a.Recv()
		if err != nil {
			out <- sendResult{err: err}
			return
		}
		if !ok {
			return
		}
		out <- sendResult{frame: frame}
	}
}
