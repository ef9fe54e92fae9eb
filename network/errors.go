package network

import "errors"

// Sentinel errors an Agent's loop can terminate with, ported one-to-one
// from the reference implementation's error enum.
var (
	ErrReadZero     = errors.New("network: read 0 bytes, connection closed")
	ErrSinkSend     = errors.New("network: sink send error, closing agent")
	ErrAdaptorSend  = errors.New("network: adaptor send error, closing agent")
	ErrAdaptorRecv  = errors.New("network: adaptor recv error, closing agent")
	ErrAdaptorReady = errors.New("network: adaptor ready error, closing agent")
)
