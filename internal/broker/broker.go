// Package broker provides the in-process publish/subscribe fabric that fans
// area snapshots out to subscribers.
package broker

import (
	"sync"

	"github.com/vovakirdan/hattown/internal/area"
)

// Handler receives snapshots for one area, in publish order.
type Handler func(snap area.Snapshot)

type subscription struct {
	id      int
	handler Handler
}

// Broker routes snapshots from areas to their subscribers. Delivery is
// synchronous and in subscription order, so each subscriber observes the
// publishes of one area in FIFO order. Handlers run on the publisher's
// goroutine while the area lock is held and must not block or call back
// into the area.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		subs: make(map[string][]subscription),
	}
}

// Publish delivers snap to every current subscriber of areaID.
func (b *Broker) Publish(areaID string, snap area.Snapshot) {
	b.mu.RLock()
	subs := b.subs[areaID]
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(snap)
	}
}

// Subscribe registers handler for areaID and returns a function that removes
// the subscription. Unsubscribing twice is a no-op.
func (b *Broker) Subscribe(areaID string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[areaID] = append(b.subs[areaID], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[areaID]
		for i, sub := range subs {
			if sub.id == id {
				b.subs[areaID] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscriberCount returns the number of subscribers for an area.
func (b *Broker) SubscriberCount(areaID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[areaID])
}

var _ area.Broadcaster = (*Broker)(nil)
