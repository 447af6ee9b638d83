package reconcile

import (
	"time"

	"github.com/okian/tradesync/pkg/logger"
)

// Default engine configuration constants.
const (
	defaultOrderBookInterval  = 1000 * time.Millisecond
	defaultOpenOrdersInterval = 2000 * time.Millisecond
	defaultTaskTimeout        = 30 * time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPending sets the pending-action store.
func WithPending(p PendingStore) Option {
	return func(e *Engine) {
		if p != nil {
			e.pending = p
		}
	}
}

// WithAlerts sets the alert store.
func WithAlerts(a AlertStore) Option {
	return func(e *Engine) {
		if a != nil {
			e.alerts = a
		}
	}
}

// WithOrderBookInterval sets the per-market order-book reload window.
func WithOrderBookInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.orderBookInterval = d
		}
	}
}

// WithOpenOrdersInterval sets the open-orders reload window.
func WithOpenOrdersInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.openOrdersInterval = d
		}
	}
}

// WithTaskTimeout bounds each secondary load.
func WithTaskTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.taskTimeout = d
		}
	}
}

// WithClock overrides the time source used by the throttles.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
