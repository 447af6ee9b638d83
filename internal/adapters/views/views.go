// Package views caches the data sets reloaded in response to events so
// that request methods can serve them without another store round trip.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultTTL             = 5 * time.Minute
	defaultCleanupInterval = time.Minute
)

// View kinds.
const (
	KindOrderBook        = "orderBook"
	KindOpenOrders       = "openOrders"
	KindTradingHistory   = "tradingHistory"
	KindPositions        = "positions"
	KindMarket           = "market"
	KindReportingPage    = "reportingPage"
	KindDisputingPage    = "disputingPage"
	KindUniverse         = "universe"
	KindForkingInfo      = "forkingInfo"
	KindReportingHistory = "reportingHistory"
	KindDisputeWindow    = "disputeWindow"
	KindFrozenFunds      = "frozenFunds"
	KindAnalytics        = "analytics"
	KindAssets           = "assets"
	KindAllowance        = "allowance"
)

// Key joins a kind and its identifying parts, e.g. orderBook:0xmarket.
func Key(kind string, parts ...string) string {
	if len(parts) == 0 {
		return kind
	}
	return kind + ":" + strings.Join(parts, ":")
}

// Entry is one cached view with the time it was loaded.
type Entry struct {
	Key      string    `json:"key"`
	Value    any       `json:"value"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Cache holds views with a TTL. It is safe for concurrent use.
type Cache struct {
	ttl     time.Duration
	cleanup time.Duration
	now     func() time.Time
	items   *cache.Cache
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long a view stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the load timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{ttl: defaultTTL, cleanup: defaultCleanupInterval, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.items = cache.New(c.ttl, c.cleanup)
	return c
}

// Set stores value under key, replacing the previous view.
func (c *Cache) Set(key string, value any) {
	c.items.Set(key, Entry{Key: key, Value: value, LoadedAt: c.now()}, cache.DefaultExpiration)
}

// Get returns the cached view for key.
func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return Entry{}, false
	}
	e, ok := v.(Entry)
	return e, ok
}

// Delete drops key. Deleting a missing key is a no-op.
func (c *Cache) Delete(key string) {
	c.items.Delete(key)
}

// DeletePrefix drops every key starting with prefix and returns how many
// were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	n := 0
	for k := range c.items.Items() {
		if strings.HasPrefix(k, prefix) {
			c.items.Delete(k)
			n++
		}
	}
	return n
}

// Keys lists the live keys, sorted.
func (c *Cache) Keys() []string {
	items := c.items.Items()
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of cached views, including expired ones not yet
// purged.
func (c *Cache) Len() int { return c.items.ItemCount() }
