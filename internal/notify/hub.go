// Package notify distributes product change events to live SSE subscribers
// and, when a broker is configured, to the message queue.
package notify

import (
	"context"
	"sync"

	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Subscription is a live event stream. Events is closed on Unsubscribe.
type Subscription struct {
	Events <-chan types.Event

	id uint64
	ch chan types.Event
}

// Hub fans events out to in-process subscribers. A slow subscriber misses
// events rather than blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[uint64]*Subscription), logger: logger}
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan types.Event, subscriberBuffer)
	sub := &Subscription{Events: ch, id: h.nextID, ch: ch}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.ch)
	}
}

func (h *Hub) Publish(_ context.Context, event types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				zap.Uint64("subscriber", sub.id),
				zap.String("type", string(event.Type)),
			)
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
