package views

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	Convey("Given a view cache", t, func() {
		now := time.Unix(1700000000, 0)
		c := New(WithClock(func() time.Time { return now }))

		Convey("Set replaces the previous view", func() {
			c.Set(Key(KindOrderBook, "m1"), []int{1})
			c.Set(Key(KindOrderBook, "m1"), []int{2})

			e, ok := c.Get("orderBook:m1")
			So(ok, ShouldBeTrue)
			So(e.Value, ShouldResemble, []int{2})
			So(e.LoadedAt.Equal(now), ShouldBeTrue)
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("DeletePrefix drops a family of views", func() {
			c.Set(Key(KindMarket, "m1"), 1)
			c.Set(Key(KindMarket, "m2"), 2)
			c.Set(Key(KindOpenOrders, "0xabc"), 3)

			So(c.DeletePrefix(Key(KindMarket, "")), ShouldEqual, 2)
			So(c.Keys(), ShouldResemble, []string{"openOrders:0xabc"})
		})

		Convey("Missing keys are reported", func() {
			_, ok := c.Get("nope")
			So(ok, ShouldBeFalse)
			c.Delete("nope")
			So(Key(KindAnalytics), ShouldEqual, "analytics")
		})
	})
}

func TestCacheExpiry(t *testing.T) {
	Convey("Views expire after the TTL", t, func() {
		c := New(WithTTL(10 * time.Millisecond))
		c.Set("k", 1)
		time.Sleep(30 * time.Millisecond)
		_, ok := c.Get("k")
		So(ok, ShouldBeFalse)
	})
}
