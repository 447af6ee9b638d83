// Package subscription tracks the event subscriptions opened over one connection.
package subscription

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/metrics"
)

// Source is the Event Source the registry attaches listeners to.
type Source interface {
	AddListener(name model.EventName, fn func(model.Event)) uint64
	RemoveListener(id uint64) bool
}

// Deliver is called for each event on an active subscription.
type Deliver func(subscriptionID string, ev model.Event)

// Subscription is one active listener.
type Subscription struct {
	ID     string          `json:"id"`
	Event  model.EventName `json:"event"`
	Params []any           `json:"params,omitempty"`

	listener uint64
}

// DefaultSupportedEvents is the set used when none is configured.
func DefaultSupportedEvents() []model.EventName {
	return []model.EventName{model.MarketCreated}
}

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	source    Source
	supported map[model.EventName]struct{}
	subs      map[string]Subscription
	closeOnce sync.Once
	closed    bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithSupportedEvents replaces the set of subscribable event names.
func WithSupportedEvents(names ...model.EventName) Option {
	return func(r *Registry) {
		if len(names) == 0 {
			return
		}
		r.supported = make(map[model.EventName]struct{}, len(names))
		for _, n := range names {
			r.supported[n] = struct{}{}
		}
	}
}

// New creates a registry bound to source.
func New(source Source, opts ...Option) *Registry {
	r := &Registry{
		source: source,
		subs:   make(map[string]Subscription),
	}
	WithSupportedEvents(DefaultSupportedEvents()...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether name may be subscribed to.
func (r *Registry) Supports(name model.EventName) bool {
	_, ok := r.supported[name]
	return ok
}

// Subscribe adds exactly one listener for name and returns a fresh id.
func (r *Registry) Subscribe(name model.EventName, params []any, deliver Deliver) (string, error) {
	if !r.Supports(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEvent, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", fmt.Errorf("subscribe %s: registry closed", name)
	}

	id := uuid.NewString()
	lid := r.source.AddListener(name, func(ev model.Event) {
		metrics.RecordSubscriptionDelivery()
		deliver(id, ev)
	})
	r.subs[id] = Subscription{ID: id, Event: name, Params: params, listener: lid}
	metrics.UpdateActiveSubscriptions(1)
	return id, nil
}

// Unsubscribe removes the listener for id. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(id)
}

func (r *Registry) remove(id string) {
	s, ok := r.subs[id]
	if !ok {
		return
	}
	r.source.RemoveListener(s.listener)
	delete(r.subs, id)
	metrics.UpdateActiveSubscriptions(-1)
}

// CloseAll removes every listener this registry added. Later calls are no-ops.
func (r *Registry) CloseAll() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for id := range r.subs {
			r.remove(id)
		}
		r.closed = true
	})
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// List returns the active subscriptions.
func (r *Registry) List() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}
