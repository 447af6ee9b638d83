package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/tradesync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WSPath, convey.ShouldEqual, "/ws")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.RedisChannel, convey.ShouldEqual, "tradesync:events")
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 4096)
			convey.So(cfg.SupportedEvents, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations are derived from the millisecond settings", func() {
			convey.So(cfg.OrderBookInterval(), convey.ShouldEqual, time.Second)
			convey.So(cfg.OpenOrdersInterval(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.TaskTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.PingInterval(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.AlertTTL(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.ViewTTL(), convey.ShouldEqual, 5*time.Minute)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"addr":                    func(c *config.Config) { c.Addr = "" },
			"ws_path":                 func(c *config.Config) { c.WSPath = "ws" },
			"queue_size":              func(c *config.Config) { c.EventQueueSize = 0 },
			"orderbook_throttle_ms":   func(c *config.Config) { c.OrderBookThrottleMS = -1 },
			"open_orders_throttle_ms": func(c *config.Config) { c.OpenOrdersThrottleMS = 0 },
			"ws_read_limit":           func(c *config.Config) { c.WSReadLimit = 0 },
		}
		for key, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, key)
		}
	})
}
