package swapengine

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// EventSink receives every event after local subscribers.
// *cache.EventPublisher satisfies it.
type EventSink interface {
	PublishEvent(ctx context.Context, ev models.SwapEvent) error
}

type eventBus struct {
	mu     sync.RWMutex
	subs   map[int]chan models.SwapEvent
	nextID int
	closed bool
	logger *logrus.Logger
}

func newEventBus(logger *logrus.Logger) *eventBus {
	return &eventBus{subs: make(map[int]chan models.SwapEvent), logger: logger}
}

func (b *eventBus) subscribe() (<-chan models.SwapEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.SwapEvent, constants.EventSubscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// publish never blocks. A subscriber whose buffer is full misses the event.
func (b *eventBus) publish(ev models.SwapEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"attempt":    ev.AttemptID,
				"type":       ev.Type,
			}).Warn("event subscriber is slow, dropping event")
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

const sinkTimeout = 2 * time.Second
