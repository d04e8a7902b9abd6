// Package notify implements the Notification Bus (a non-blocking
// publish-subscribe fan-out of models.Notification records) and the Status
// Factory, the single place those records are constructed.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/snapdog/snapdog/internal/models"
)

const subBufferSize = 32

// Publisher is the narrow capability the managers layer needs: publish a
// notification without knowing about subscriber management.
type Publisher interface {
	Publish(models.Notification)
}

// Bus is a non-blocking publish-subscribe fan-out of notification records.
// Delivery to independent subscribers is concurrent; a slow subscriber has
// notifications dropped rather than blocking the publisher or other
// subscribers. Because each subscriber has its own buffered channel, the
// order it does receive respects publish order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]chan models.Notification
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan models.Notification)}
}

// Subscribe registers a new subscriber and returns its id (for Unsubscribe)
// and the channel it should read from.
func (b *Bus) Subscribe() (string, <-chan models.Notification) {
	id := uuid.NewString()
	ch := make(chan models.Notification, subBufferSize)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish fans n out to every current subscriber. Non-blocking: a
// subscriber whose channel is full has this notification dropped so one
// slow sink can never stall another or the publisher.
func (b *Bus) Publish(n models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

var _ Publisher = (*Bus)(nil)
