// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
)

// Dependencies required by HTTP handlers. The service implements the
// bundle so handlers stay decoupled from concrete stores.
type Dependencies interface {
	// Publish hands an event to the Event Source and returns how many
	// listeners received it.
	Publish(ev model.Event) int

	Session() model.Session
	SignIn(address string)
	SignOut()
	SetView(page model.Page, marketID string)

	PutPending(key model.PendingKey, status model.PendingStatus, data any)
	RemovePending(key model.PendingKey) bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	sessionHandler *SessionHandler
	pendingHandler *PendingHandler
	log            logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for handler panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		eventsHandler:  NewEventsHandler(deps),
		sessionHandler: NewSessionHandler(deps),
		pendingHandler: NewPendingHandler(deps),
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	routes := []struct {
		path     string
		endpoint string
		handler  http.HandlerFunc
	}{
		{"/healthz", "healthz", s.healthHandler.HandleHealth},
		{"/stats", "stats", s.statsHandler.HandleStats},
		{"/events", "events", s.eventsHandler.HandlePostEvent},
		{"/session", "session", s.sessionHandler.HandleSession},
		{"/session/view", "session_view", s.sessionHandler.HandleView},
		{"/pending", "pending", s.pendingHandler.HandlePending},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.path, instrument(s.log, rt.endpoint, rt.handler))
	}
}
