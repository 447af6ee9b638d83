// Package session holds the authoritative session state of the connected user.
package session

import (
	"strings"
	"sync"

	"github.com/okian/tradesync/internal/domain/model"
)

// Store is safe for concurrent use. Writes are visible to the next Snapshot.
type Store struct {
	mu      sync.RWMutex
	current model.Session
}

// Option configures a Store.
type Option func(*Store)

// WithUniverse sets the initial universe.
func WithUniverse(universe string) Option {
	return func(s *Store) { s.current.Universe = universe }
}

// New creates a signed-out store viewing no page.
func New(opts ...Option) *Store {
	s := &Store{current: model.Session{View: model.View{Page: model.PageNone}}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SignIn marks address as the logged-in identity.
func (s *Store) SignIn(address string) {
	address = strings.TrimSpace(address)
	s.mu.Lock()
	s.current.Identity = model.Identity{Address: address, IsLogged: address != ""}
	s.mu.Unlock()
}

// SignOut clears the identity.
func (s *Store) SignOut() {
	s.mu.Lock()
	s.current.Identity = model.Identity{}
	s.mu.Unlock()
}

// SetView records the page and market in focus.
func (s *Store) SetView(page model.Page, marketID string) {
	s.mu.Lock()
	s.current.View = model.View{Page: page, MarketID: marketID}
	s.mu.Unlock()
}

// SetUniverse switches the active universe.
func (s *Store) SetUniverse(universe string) {
	s.mu.Lock()
	s.current.Universe = universe
	s.mu.Unlock()
}
