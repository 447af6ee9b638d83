package throttle_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/tradesync/internal/domain/throttle"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestThrottler(t *testing.T) {
	Convey("Given a 1s throttler with a manual clock", t, func() {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		th := throttle.New(time.Second, throttle.WithClock(clock.Now), throttle.WithName("orderbook"))
		runs := 0
		fn := func() { runs++ }

		Convey("When five calls arrive within 200ms", func() {
			for i := 0; i < 5; i++ {
				th.Do("m1", fn)
				clock.Advance(50 * time.Millisecond)
			}

			Convey("Then exactly one executes", func() {
				So(runs, ShouldEqual, 1)
			})

			Convey("Then another call after 1100ms executes again", func() {
				clock.Advance(1100 * time.Millisecond)
				So(th.Do("m1", fn), ShouldBeTrue)
				So(runs, ShouldEqual, 2)
			})

			Convey("Then stats reflect the decisions", func() {
				stats := th.Stats()
				So(stats, ShouldHaveLength, 1)
				So(stats[0].Key, ShouldEqual, "m1")
				So(stats[0].Executed, ShouldEqual, uint64(1))
				So(stats[0].Suppressed, ShouldEqual, uint64(4))
			})
		})

		Convey("When keys differ", func() {
			So(th.Do("m1", fn), ShouldBeTrue)
			So(th.Do("m2", fn), ShouldBeTrue)
			So(th.Do("m1", fn), ShouldBeFalse)

			Convey("Then each key has its own window", func() {
				So(runs, ShouldEqual, 2)
			})
		})

		Convey("When a suppressed call does not extend the window", func() {
			So(th.Do("m1", fn), ShouldBeTrue)
			clock.Advance(900 * time.Millisecond)
			So(th.Do("m1", fn), ShouldBeFalse)
			clock.Advance(150 * time.Millisecond)

			Convey("Then the next window opens one interval after the first run", func() {
				So(th.Do("m1", fn), ShouldBeTrue)
			})
		})

		Convey("When pruning idle keys", func() {
			th.Do("m1", fn)
			clock.Advance(time.Minute)
			th.Do("m2", fn)

			Convey("Then only stale keys are dropped", func() {
				So(th.Prune(30*time.Second), ShouldEqual, 1)
				So(th.Stats(), ShouldHaveLength, 1)
			})
		})
	})
}
