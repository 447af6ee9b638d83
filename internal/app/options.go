package service

import (
	"time"

	"github.com/okian/tradesync/internal/adapters/ws"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize sets the capacity of the engine's inbox.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSupportedEvents restricts the event names clients may subscribe to.
func WithSupportedEvents(names ...model.EventName) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.supported = append([]model.EventName(nil), names...)
		}
	}
}

// WithUniverse seeds the session universe.
func WithUniverse(id string) Option {
	return func(s *Service) { s.universe = id }
}

// WithThrottle sets the order-book and open-orders reload windows.
func WithThrottle(orderBook, openOrders time.Duration) Option {
	return func(s *Service) {
		if orderBook > 0 {
			s.orderBookInterval = orderBook
		}
		if openOrders > 0 {
			s.openOrdersInterval = openOrders
		}
	}
}

// WithTaskTimeout bounds each secondary load.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithCacheTTL sets how long alerts and loaded views are kept.
func WithCacheTTL(alerts, views time.Duration) Option {
	return func(s *Service) {
		if alerts > 0 {
			s.alertTTL = alerts
		}
		if views > 0 {
			s.viewTTL = views
		}
	}
}

// WithDatabase enables the SQL query store.
func WithDatabase(url string, maxOpen int) Option {
	return func(s *Service) {
		s.databaseURL = url
		s.dbMaxOpen = maxOpen
	}
}

// WithRedisFeed enables the redis event feed.
func WithRedisFeed(addr, channel string) Option {
	return func(s *Service) {
		s.redisAddr = addr
		s.redisChannel = channel
	}
}

// WithChain enables balance and allowance reads over JSON-RPC.
func WithChain(url, token, spender string) Option {
	return func(s *Service) {
		s.ethURL = url
		s.token = token
		s.spender = spender
	}
}

// WithWebSocketOptions passes options to the transport server.
func WithWebSocketOptions(opts ...ws.Option) Option {
	return func(s *Service) { s.wsOpts = append(s.wsOpts, opts...) }
}

// WithDedupeSize sets how many recent block hashes are remembered for
// dropping replayed ticks.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}
