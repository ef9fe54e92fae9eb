// Package hub is a generic fan-out broadcaster: any number of clients
// register an outbound channel, and Broadcast pushes one value to
// every one of them under a configurable backpressure policy.
package hub

import (
	"sync"

	"github.com/relaygrid/gsfw-go/internal/logging"
	"github.com/relaygrid/gsfw-go/internal/metrics"
)

// BackpressurePolicy controls what happens when a client's outbound
// buffer is full at broadcast time.
type BackpressurePolicy int

const (
	// PolicyDrop silently drops the value for that client only.
	PolicyDrop BackpressurePolicy = iota
	// PolicyKick closes the client so its owner can clean it up.
	PolicyKick
)

// Client is one registered broadcast destination.
type Client[T any] struct {
	Out       chan T
	Closed    chan struct{}
	closeOnce sync.Once
}

// NewClient builds a Client with an outbound buffer of the given size.
func NewClient[T any](bufSize int) *Client[T] {
	return &Client[T]{Out: make(chan T, bufSize), Closed: make(chan struct{})}
}

// Close signals the client is closed. Idempotent.
func (c *Client[T]) Close() {
	c.closeOnce.Do(func() { close(c.Closed) })
}

// Hub holds the set of registered clients for one broadcast domain.
type Hub[T any] struct {
	mu      sync.RWMutex
	clients map[*Client[T]]struct{}
	Policy  BackpressurePolicy
}

// New creates an empty Hub with the drop policy.
func New[T any]() *Hub[T] {
	return &Hub[T]{clients: make(map[*Client[T]]struct{})}
}

// Add registers a client with the hub.
func (h *Hub[T]) Add(c *Client[T]) {
	h.mu.Lock()
	prev := len(h.clients)
	h.clients[c] = struct{}{}
	cur := len(h.clients)
	h.mu.Unlock()
	metrics.SetHubClients(cur)
	if prev == 0 && cur == 1 {
		logging.L().Info("hub: first client connected")
	}
}

// Remove unregisters a client. Safe to call multiple times.
func (h *Hub[T]) Remove(c *Client[T]) {
	h.mu.Lock()
	_, existed := h.clients[c]
	if existed {
		delete(h.clients, c)
	}
	cur := len(h.clients)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubClients(cur)
	if existed && cur == 0 {
		logging.L().Info("hub: last client disconnected")
	}
}

// Broadcast sends v to every registered client, honoring the
// backpressure policy for any client whose buffer is full.
func (h *Hub[T]) Broadcast(v T) {
	clients := h.Snapshot()
	metrics.SetHubBroadcastFanout(len(clients))
	for _, c := range clients {
		select {
		case c.Out <- v:
		default:
			if h.Policy == PolicyKick {
				metrics.IncHubKick()
				c.Close()
			} else {
				metrics.IncHubDrop()
			}
		}
	}
}

// Snapshot returns a slice copy of the currently registered clients.
func (h *Hub[T]) Snapshot() []*Client[T] {
	h.mu.RLock()
	clients := make([]*Client[T], 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	return clients
}

// Count returns the number of registered clients.
func (h *Hub[T]) Count() int {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	return n
}
