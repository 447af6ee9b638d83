// Package broadcast is the process-wide Event Source: decoded events are
// published once and fanned out to every registered listener.
package broadcast

import (
	"sync"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/metrics"
)

// AnyEvent registers a listener for every event name.
const AnyEvent model.EventName = "*"

type registration struct {
	name model.EventName
	fn   func(model.Event)
}

// Broadcaster is safe for concurrent use.
type Broadcaster struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]registration
}

// New creates a broadcaster with no listeners.
func New() *Broadcaster {
	return &Broadcaster{listeners: make(map[uint64]registration)}
}

// AddListener registers fn for events named name and returns its id.
// Listeners run on the publisher's goroutine while the registry is
// read-locked and must not block.
func (b *Broadcaster) AddListener(name model.EventName, fn func(model.Event)) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[b.next] = registration{name: name, fn: fn}
	return b.next
}

// RemoveListener unregisters id. Once it returns no further delivery to
// that listener starts. It reports whether id was registered.
func (b *Broadcaster) RemoveListener(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.listeners[id]
	delete(b.listeners, id)
	return ok
}

// Publish delivers ev to matching listeners and returns how many got it.
func (b *Broadcaster) Publish(ev model.Event) int {
	metrics.RecordEventPublished(string(ev.Name))

	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, r := range b.listeners {
		if r.name == ev.Name || r.name == AnyEvent {
			r.fn(ev)
			n++
		}
	}
	return n
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Count returns the number of listeners registered for name.
func (b *Broadcaster) Count(name model.EventName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, r := range b.listeners {
		if r.name == name {
			n++
		}
	}
	return n
}
