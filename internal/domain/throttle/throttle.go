// Package throttle limits how often an expensive reload may run per resource.
package throttle

import (
	"sync"
	"time"

	"github.com/okian/tradesync/pkg/metrics"
	"golang.org/x/time/rate"
)

// Throttler runs at most one call per key per interval. The first call in
// a window runs immediately; the rest of the window is dropped.
type Throttler struct {
	mu       sync.Mutex
	name     string
	interval time.Duration
	now      func() time.Time
	keys     map[string]*entry
}

type entry struct {
	limiter    *rate.Limiter
	last       time.Time
	executed   uint64
	suppressed uint64
}

// KeyStats describes the state of one key.
type KeyStats struct {
	Key            string    `json:"key"`
	LastInvocation time.Time `json:"last_invocation"`
	Executed       uint64    `json:"executed"`
	Suppressed     uint64    `json:"suppressed"`
}

// Option configures a Throttler.
type Option func(*Throttler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Throttler) {
		if now != nil {
			t.now = now
		}
	}
}

// WithName labels the throttler in metrics.
func WithName(name string) Option {
	return func(t *Throttler) {
		if name != "" {
			t.name = name
		}
	}
}

// New creates a throttler with the given interval.
func New(interval time.Duration, opts ...Option) *Throttler {
	t := &Throttler{
		name:     "default",
		interval: interval,
		now:      time.Now,
		keys:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the configured window.
func (t *Throttler) Interval() time.Duration { return t.interval }

// Allow reports whether a call for key may run now, and records it if so.
func (t *Throttler) Allow(key string) bool {
	now := t.now()

	t.mu.Lock()
	e, ok := t.keys[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.keys[key] = e
	}
	allowed := t.interval <= 0 || e.limiter.AllowN(now, 1)
	if allowed {
		e.executed++
		e.last = now
	} else {
		e.suppressed++
	}
	t.mu.Unlock()

	if allowed {
		metrics.RecordThrottleExecuted(t.name)
	} else {
		metrics.RecordThrottleSuppressed(t.name)
	}
	return allowed
}

// Do runs fn if key is outside its window. It reports whether fn ran.
func (t *Throttler) Do(key string, fn func()) bool {
	if !t.Allow(key) {
		return false
	}
	fn()
	return true
}

// Prune forgets keys idle for longer than idle.
func (t *Throttler) Prune(idle time.Duration) int {
	cutoff := t.now().Add(-idle)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, e := range t.keys {
		if e.last.Before(cutoff) {
			delete(t.keys, k)
			n++
		}
	}
	return n
}

// Stats returns a snapshot of every tracked key.
func (t *Throttler) Stats() []KeyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]KeyStats, 0, len(t.keys))
	for k, e := range t.keys {
		out = append(out, KeyStats{Key: k, LastInvocation: e.last, Executed: e.executed, Suppressed: e.suppressed})
	}
	return out
}
