// Package realtime fans full feed snapshots out to subscribers. It mirrors
// the query-subscription contract of a document store: every delivery
// carries the entire current result set, not a delta, and consumers replace
// their state wholesale on each one.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideafeed/internal/models"
)

// Hub broadcasts idea snapshots to all active subscriptions.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
	log    *zap.Logger
}

// Subscription receives snapshots on Updates until Close is called or the
// hub shuts down. The channel is buffered with a depth of one: if a
// subscriber lags, its pending snapshot is replaced by the newest one, which
// is safe because each snapshot is authoritative.
type Subscription struct {
	id  string
	hub *Hub
	ch  chan []models.Idea
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{subs: make(map[string]*Subscription), log: log}
}

// Subscribe registers a new subscriber. Returns nil if the hub is closed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	sub := &Subscription{
		id:  uuid.New().String(),
		hub: h,
		ch:  make(chan []models.Idea, 1),
	}
	h.subs[sub.id] = sub
	h.log.Debug("subscriber added", zap.String("sub", sub.id), zap.Int("total", len(h.subs)))
	return sub
}

// Broadcast delivers snapshot to every subscriber. A stale undelivered
// snapshot is dropped first so the newest always wins.
func (h *Hub) Broadcast(snapshot []models.Idea) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snapshot
	}
}

// Close shuts the hub down and closes every subscription channel. No
// further deliveries happen after Close returns.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	h.log.Debug("subscriber removed", zap.String("sub", id), zap.Int("total", len(h.subs)))
}

// Updates is the snapshot channel. It is closed when the subscription or
// the hub is closed; receivers must stop consuming on close so a torn-down
// component is never mutated by a late delivery.
func (s *Subscription) Updates() <-chan []models.Idea {
	return s.ch
}

// Close releases the subscription and stops further deliveries.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}
