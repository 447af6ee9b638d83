// Package ws serves request/response calls and event subscriptions over
// a WebSocket connection.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/subscription"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
)

const (
	defaultSendBuffer   = 256
	defaultReadLimit    = 1 << 20
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
)

// Dispatcher serves every method other than subscribe and unsubscribe.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params []any) (any, error)
}

// Server is an http.Handler. Each upgraded connection gets its own
// subscription registry.
type Server struct {
	source     subscription.Source
	dispatcher Dispatcher
	supported  []model.EventName
	log        logger.Logger

	sendBuffer   int
	readLimit    int64
	pingInterval time.Duration

	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*conn]struct{}
	active atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSendBuffer bounds the outbound frames queued per connection.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithReadLimit caps the size of an inbound frame.
func WithReadLimit(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithPingInterval sets the keepalive period. The read deadline is twice
// the interval.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithSupportedEvents sets the events each connection may subscribe to.
func WithSupportedEvents(names ...model.EventName) Option {
	return func(s *Server) {
		s.supported = append([]model.EventName(nil), names...)
	}
}

// NewServer creates a server publishing subscriptions from source.
func NewServer(source subscription.Source, dispatcher Dispatcher, opts ...Option) *Server {
	s := &Server{
		source:       source,
		dispatcher:   dispatcher,
		supported:    subscription.DefaultSupportedEvents(),
		log:          logger.Nop(),
		sendBuffer:   defaultSendBuffer,
		readLimit:    defaultReadLimit,
		pingInterval: defaultPingInterval,
		conns:        make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return s
}

// Connections reports the number of open connections.
func (s *Server) Connections() int64 { return s.active.Load() }

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		s.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(errors.Join(ErrTransport, err)))
		return
	}

	c := newConn(s, wsConn)
	s.track(c, true)
	defer s.track(c, false)

	c.serve(r.Context())
}

func (s *Server) track(c *conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
		s.active.Add(1)
		metrics.UpdateWSConnections(1)
		return
	}
	delete(s.conns, c)
	s.active.Add(-1)
	metrics.UpdateWSConnections(-1)
}

// Close drops every open connection. Each connection then runs its own
// teardown.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.ws.Close()
	}
}
