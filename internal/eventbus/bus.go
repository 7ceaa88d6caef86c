// Package eventbus provides the in-process change notification bus editors
// use to find out that the drafts of a schema changed. Delivery is
// synchronous, fire-and-forget and best-effort: a panicking listener does
// not break delivery to the remaining listeners.
package eventbus

import (
	"sort"
	"sync"

	"github.com/draftforge/draftforge/internal"
	"github.com/shopmonkeyus/go-common/logger"
)

type Bus struct {
	logger logger.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(internal.ChangeEvent)
}

var _ internal.ChangeBus = (*Bus)(nil)

// New creates a new bus. Each bus instance is independent so multiple editor
// trees (and tests) can run without cross-talk.
func New(logger logger.Logger) *Bus {
	return &Bus{
		logger:    logger.WithPrefix("[bus]"),
		listeners: make(map[int]func(internal.ChangeEvent)),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(listener func(internal.ChangeEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Emit delivers the event to every current listener in subscription order.
func (b *Bus) Emit(event internal.ChangeEvent) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(internal.ChangeEvent), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.deliver(listener, event)
	}
}

func (b *Bus) deliver(listener func(internal.ChangeEvent), event internal.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked handling change for setup: %s schema: %s: %v", event.SetupID, event.SchemaKey, r)
		}
	}()
	listener(event)
}
