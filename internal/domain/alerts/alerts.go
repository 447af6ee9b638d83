// Package alerts stores user-visible notifications, upserted by id.
package alerts

import (
	"sort"
	"time"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/patrickmn/go-cache"
)

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// Store keeps alerts for a bounded time. It is safe for concurrent use.
type Store struct {
	ttl     time.Duration
	cleanup time.Duration
	items   *cache.Cache
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long an alert is kept after its last upsert.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired alerts are purged.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.cleanup = d
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{ttl: defaultTTL, cleanup: defaultCleanupInterval}
	for _, opt := range opts {
		opt(s)
	}
	s.items = cache.New(s.ttl, s.cleanup)
	return s
}

// Upsert stores a, replacing any alert with the same id.
func (s *Store) Upsert(a model.Alert) {
	if a.ID == "" {
		return
	}
	s.items.Set(a.ID, a, cache.DefaultExpiration)
	metrics.RecordAlertUpserted(string(a.Name))
}

// Get returns the alert with id.
func (s *Store) Get(id string) (model.Alert, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return model.Alert{}, false
	}
	a, ok := v.(model.Alert)
	return a, ok
}

// Remove deletes the alert with id.
func (s *Store) Remove(id string) {
	s.items.Delete(id)
}

// List returns live alerts, newest first.
func (s *Store) List() []model.Alert {
	items := s.items.Items()
	out := make([]model.Alert, 0, len(items))
	for _, it := range items {
		if a, ok := it.Object.(model.Alert); ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp == out[j].Timestamp {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Len returns the number of stored alerts, including expired ones not yet purged.
func (s *Store) Len() int {
	return s.items.ItemCount()
}
