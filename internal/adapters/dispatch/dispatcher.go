// Package dispatch routes request methods to their implementations.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
)

// Method serves one request. params is the positional params array of the
// request envelope.
type Method func(ctx context.Context, params []any) (any, error)

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]Method
	log     logger.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// New creates a dispatcher with no methods.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{methods: make(map[string]Method), log: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds or replaces a method.
func (d *Dispatcher) Register(name string, m Method) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[name] = m
}

// Methods lists registered names, sorted.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.methods))
	for name := range d.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs method with params.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params []any) (any, error) {
	d.mu.RLock()
	m, ok := d.methods[method]
	d.mu.RUnlock()
	if !ok {
		metrics.RecordDispatch(method, "unknown", 0)
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	start := time.Now()
	res, err := m(ctx, params)
	elapsed := float64(time.Since(start).Nanoseconds()) / 1e6
	if err != nil {
		metrics.RecordDispatch(method, "error", elapsed)
		return nil, fmt.Errorf("%w: %s: %w", ErrDispatch, method, err)
	}
	metrics.RecordDispatch(method, "ok", elapsed)
	d.log.Debug(ctx, "dispatched", logger.String("method", method), logger.Float64("ms", elapsed))
	return res, nil
}

// ObjectParam returns the first positional param when it is a JSON object,
// and an empty map when params is empty.
func ObjectParam(params []any) (map[string]any, error) {
	if len(params) == 0 || params[0] == nil {
		return map[string]any{}, nil
	}
	obj, ok := params[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidParams, params[0])
	}
	return obj, nil
}
