// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, receives logs with size-based rotation.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	WSPath           string `koanf:"ws_path"`
	WSSendBuffer     int    `koanf:"ws_send_buffer"`
	WSReadLimit      int64  `koanf:"ws_read_limit"`
	WSPingIntervalMS int    `koanf:"ws_ping_interval_ms"`

	// EventQueueSize bounds the queue between the event source and the engine.
	EventQueueSize int `koanf:"queue_size"`

	// SupportedEvents restricts subscribable event names. Empty keeps the
	// registry default.
	SupportedEvents []string `koanf:"supported_events"`

	OrderBookThrottleMS  int `koanf:"orderbook_throttle_ms"`
	OpenOrdersThrottleMS int `koanf:"open_orders_throttle_ms"`
	TaskTimeoutMS        int `koanf:"task_timeout_ms"`

	AlertTTLMinutes int `koanf:"alert_ttl_minutes"`
	ViewTTLSeconds  int `koanf:"view_ttl_seconds"`

	// DedupeSize is how many recent block hashes are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// UniverseID seeds the session's universe.
	UniverseID string `koanf:"universe_id"`

	// DatabaseURL enables the SQL query store when set.
	DatabaseURL    string `koanf:"database_url"`
	DBMaxOpenConns int    `koanf:"db_max_open_conns"`

	// RedisAddr enables the redis event feed when set.
	RedisAddr    string `koanf:"redis_addr"`
	RedisChannel string `koanf:"redis_channel"`

	// EthRPCURL enables balance and allowance reads when set.
	EthRPCURL      string `koanf:"eth_rpc_url"`
	TradingToken   string `koanf:"trading_token"`
	TradingSpender string `koanf:"trading_spender"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		WSPath:               "/ws",
		WSSendBuffer:         256,
		WSReadLimit:          1 << 20,
		WSPingIntervalMS:     30_000,
		EventQueueSize:       10_000,
		OrderBookThrottleMS:  1_000,
		OpenOrdersThrottleMS: 2_000,
		TaskTimeoutMS:        30_000,
		AlertTTLMinutes:      24 * 60,
		ViewTTLSeconds:       300,
		DedupeSize:           4096,
		DBMaxOpenConns:       10,
		RedisChannel:         "tradesync:events",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.WSPath == "" || c.WSPath[0] != '/' {
		return fmt.Errorf("%w: ws_path must be an absolute path", ErrInvalidConfig)
	}
	positive := []struct {
		key string
		val int
	}{
		{"ws_send_buffer", c.WSSendBuffer},
		{"ws_ping_interval_ms", c.WSPingIntervalMS},
		{"queue_size", c.EventQueueSize},
		{"orderbook_throttle_ms", c.OrderBookThrottleMS},
		{"open_orders_throttle_ms", c.OpenOrdersThrottleMS},
		{"task_timeout_ms", c.TaskTimeoutMS},
		{"alert_ttl_minutes", c.AlertTTLMinutes},
		{"view_ttl_seconds", c.ViewTTLSeconds},
		{"dedupe_size", c.DedupeSize},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, p.key)
		}
	}
	if c.WSReadLimit <= 0 {
		return fmt.Errorf("%w: ws_read_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// PingInterval returns the WebSocket keep-alive period.
func (c *Config) PingInterval() time.Duration { return ms(c.WSPingIntervalMS) }

// OrderBookInterval returns the order-book reload throttle window.
func (c *Config) OrderBookInterval() time.Duration { return ms(c.OrderBookThrottleMS) }

// OpenOrdersInterval returns the open-orders reload throttle window.
func (c *Config) OpenOrdersInterval() time.Duration { return ms(c.OpenOrdersThrottleMS) }

// TaskTimeout bounds a single loader call.
func (c *Config) TaskTimeout() time.Duration { return ms(c.TaskTimeoutMS) }

// AlertTTL returns how long alerts are kept.
func (c *Config) AlertTTL() time.Duration { return time.Duration(c.AlertTTLMinutes) * time.Minute }

// ViewTTL returns how long loaded views are cached.
func (c *Config) ViewTTL() time.Duration { return time.Duration(c.ViewTTLSeconds) * time.Second }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
