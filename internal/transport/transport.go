package transport

import (
	"errors"
	"sync"

	"chaos-room/internal/protocol"
)

var ErrClosed = errors.New("transport closed")

// DefaultChannel is the relay channel every room shares.
const DefaultChannel = "chaos_room_sync"

// Handler receives every action delivered to a subscription, in arrival order.
type Handler func(protocol.Action)

// Transport carries actions between participants. Broadcast is fire-and-forget
// and never delivers back to the transport it was called on. Delivery is not
// partitioned by room; receivers filter on the envelope's room code.
type Transport interface {
	Broadcast(action protocol.Action) error
	Subscribe(handler Handler) *Subscription
	Close(sub *Subscription)
}

// Subscription owns a queue and a goroutine so a slow handler never blocks
// the publisher.
type Subscription struct {
	handler Handler
	mu      sync.Mutex
	queue   []protocol.Action
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscription(handler Handler) *Subscription {
	sub := &Subscription{
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go sub.pump()
	return sub
}

func (s *Subscription) push(action protocol.Action) {
	s.mu.Lock()
	s.queue = append(s.queue, action)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(next)
		}
	}
}

func (s *Subscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

// registry is the fan-out shared by every Transport implementation.
type registry struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newRegistry() *registry {
	return &registry{subs: make(map[*Subscription]struct{})}
}

func (r *registry) add(handler Handler) *Subscription {
	sub := newSubscription(handler)
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

func (r *registry) remove(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
	sub.stop()
}

func (r *registry) removeAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[*Subscription]struct{})
	r.mu.Unlock()
	for sub := range subs {
		sub.stop()
	}
}

func (r *registry) publish(action protocol.Action) {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()
	for _, sub := range subs {
		sub.push(action)
	}
}
