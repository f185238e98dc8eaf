package transport

import (
	"sync"

	"chaos-room/internal/protocol"
)

// Bus is an in-process channel shared by several endpoints, the way tabs of
// one browser share a broadcast channel.
type Bus struct {
	mu        sync.Mutex
	endpoints map[*Endpoint]struct{}
}

func NewBus() *Bus {
	return &Bus{endpoints: make(map[*Endpoint]struct{})}
}

// Endpoint is one participant's view of a Bus.
type Endpoint struct {
	bus    *Bus
	subs   *registry
	mu     sync.Mutex
	closed bool
}

func (b *Bus) Join() *Endpoint {
	ep := &Endpoint{bus: b, subs: newRegistry()}
	b.mu.Lock()
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

func (b *Bus) deliver(from *Endpoint, action protocol.Action) {
	b.mu.Lock()
	targets := make([]*Endpoint, 0, len(b.endpoints))
	for ep := range b.endpoints {
		if ep != from {
			targets = append(targets, ep)
		}
	}
	b.mu.Unlock()
	for _, ep := range targets {
		ep.subs.publish(action)
	}
}

func (e *Endpoint) Broadcast(action protocol.Action) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	e.bus.deliver(e, action)
	return nil
}

func (e *Endpoint) Subscribe(handler Handler) *Subscription {
	return e.subs.add(handler)
}

func (e *Endpoint) Close(sub *Subscription) {
	e.subs.remove(sub)
}

// Leave detaches the endpoint from the bus and stops all its subscriptions.
func (e *Endpoint) Leave() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.bus.mu.Lock()
	delete(e.bus.endpoints, e)
	e.bus.mu.Unlock()
	e.subs.removeAll()
}
