// Package pending tracks user actions awaiting on-chain confirmation.
package pending

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/metrics"
)

// Store keeps pending actions keyed by (resource id, kind).
type Store struct {
	mu      sync.RWMutex
	actions map[model.PendingKey]model.PendingAction
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		actions: make(map[model.PendingKey]model.PendingAction),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add records a new pending action, replacing any previous one for key.
func (s *Store) Add(key model.PendingKey, data any) {
	s.Put(key, model.StatusPending, data)
}

// Put creates or updates the action for key.
func (s *Store) Put(key model.PendingKey, status model.PendingStatus, data any) {
	s.mu.Lock()
	s.actions[key] = model.PendingAction{Key: key, Status: status, Data: data, UpdatedAt: s.now()}
	n := len(s.actions)
	s.mu.Unlock()
	metrics.UpdatePendingActions(n)
}

// SetStatus updates the status for key, creating the record if needed.
func (s *Store) SetStatus(key model.PendingKey, status model.PendingStatus) {
	s.mu.Lock()
	a, ok := s.actions[key]
	if !ok {
		a = model.PendingAction{Key: key}
	}
	a.Status = status
	a.UpdatedAt = s.now()
	s.actions[key] = a
	n := len(s.actions)
	s.mu.Unlock()
	metrics.UpdatePendingActions(n)
}

// Remove deletes the action for key. It reports whether one existed.
func (s *Store) Remove(key model.PendingKey) bool {
	s.mu.Lock()
	_, ok := s.actions[key]
	delete(s.actions, key)
	n := len(s.actions)
	s.mu.Unlock()
	metrics.UpdatePendingActions(n)
	return ok
}

// Get returns the action for key.
func (s *Store) Get(key model.PendingKey) (model.PendingAction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[key]
	return a, ok
}

// List returns all actions, most recently updated first.
func (s *Store) List() []model.PendingAction {
	s.mu.RLock()
	out := make([]model.PendingAction, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of tracked actions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.actions)
}
