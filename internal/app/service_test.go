package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/tradesync/internal/app"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/reconcile"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func engineStats(svc *service.Service) reconcile.Stats {
	st, _ := svc.GetStats()["engine"].(reconcile.Stats)
	return st
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then in-process state is usable before Start", func() {
			So(svc, ShouldNotBeNil)
			So(svc.WebSocketHandler(), ShouldBeNil)

			svc.SignIn("0xabc")
			So(svc.Session().Identity.IsLogged, ShouldBeTrue)
			svc.SetView(model.PageTrade, "m1")
			So(svc.Session().OnTrade("m1"), ShouldBeTrue)
			svc.SignOut()
			So(svc.Session().Identity.IsLogged, ShouldBeFalse)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 10_000)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithQueueSize(64),
			service.WithUniverse("0xuniverse"),
			service.WithSupportedEvents(model.MarketCreated, model.OrderCreated),
			service.WithThrottle(10*time.Millisecond, 20*time.Millisecond),
			service.WithTaskTimeout(time.Second),
		)

		Convey("Then it should apply them", func() {
			So(svc.Session().Universe, ShouldEqual, "0xuniverse")
			So(svc.GetStats()["queueSize"], ShouldEqual, 64)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithQueueSize(16))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then it reports as started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["listeners"], ShouldEqual, 1)
			So(stats["methods"], ShouldContain, "getSyncStatus")
			So(svc.WebSocketHandler(), ShouldNotBeNil)
		})

		Convey("Then a second Start is rejected", func() {
			So(errors.Is(svc.Start(ctx), service.ErrStarted), ShouldBeTrue)
		})

		Convey("Then published block ticks reach the engine", func() {
			n := svc.Publish(model.Event{Name: model.NewBlock, Fields: map[string]any{
				model.FieldHighestAvailableBlockNumber: 42,
				model.FieldLastSyncedBlockNumber:       40,
			}})
			So(n, ShouldEqual, 1)
			So(waitFor(func() bool { return engineStats(svc).ChainHead.CurrentBlockNumber == 42 }), ShouldBeTrue)
			So(engineStats(svc).ChainHead.LastSyncedBlockNumber, ShouldEqual, int64(40))
		})

		Convey("Then confirmed orders clear their pending action", func() {
			key := model.PendingKey{ResourceID: "5_10_1_m1", Kind: model.PlaceOrder}
			svc.SignIn("0xabc")
			svc.PutPending(key, model.StatusPending, nil)
			So(svc.GetStats()["pendingActions"], ShouldEqual, 1)

			svc.Publish(model.Event{Name: model.OrderCreated, Fields: map[string]any{
				model.FieldOrderCreator: "0xABC",
				model.FieldMarket:       "m1",
				model.FieldAmount:       "5",
				model.FieldPrice:        "10",
				model.FieldOutcome:      1,
			}})
			So(waitFor(func() bool { return svc.GetStats()["pendingActions"] == 0 }), ShouldBeTrue)
		})

		Convey("Then pending actions can be cancelled", func() {
			key := model.PendingKey{ResourceID: "0xtx", Kind: model.CreateMarket}
			svc.PutPending(key, model.StatusPending, nil)
			So(svc.RemovePending(key), ShouldBeTrue)
			So(svc.RemovePending(key), ShouldBeFalse)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When it is stopped", func() {
			svc.Stop()

			Convey("Then it detaches from the event source", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats["listeners"], ShouldEqual, 0)
				So(svc.Publish(model.Event{Name: model.NewBlock}), ShouldEqual, 0)
			})

			Convey("Then stopping again is a no-op", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_StartFailure(t *testing.T) {
	Convey("Given a service with an unreachable database", t, func() {
		svc := service.New(service.WithDatabase("postgres://127.0.0.1:1/none?sslmode=disable&connect_timeout=1", 1))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("Then Start fails with ErrStart", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, service.ErrStart), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_BlockDedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithDedupeSize(8))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		tick := model.Event{Name: model.NewBlock, Fields: map[string]any{
			model.FieldBlockHash:                   "0xB1",
			model.FieldHighestAvailableBlockNumber: 1,
		}}

		Convey("Then a replayed block tick is published once", func() {
			So(svc.Publish(tick), ShouldEqual, 1)
			So(svc.Publish(tick), ShouldEqual, 0)
			So(svc.GetStats()["duplicates"], ShouldEqual, uint64(1))
			So(svc.GetStats()["seenBlocks"], ShouldEqual, int64(1))
		})

		Convey("Then a reorged block is accepted again", func() {
			So(svc.Publish(tick), ShouldEqual, 1)
			removed := tick
			removed.Removed = true
			So(svc.Publish(removed), ShouldEqual, 1)
			So(svc.Publish(tick), ShouldEqual, 1)
			So(svc.GetStats()["duplicates"], ShouldEqual, uint64(0))
		})

		Convey("Then ticks without a hash are never deduplicated", func() {
			bare := model.Event{Name: model.NewBlock}
			So(svc.Publish(bare), ShouldEqual, 1)
			So(svc.Publish(bare), ShouldEqual, 1)
		})
	})
}

func TestService_ForkWithoutStore(t *testing.T) {
	Convey("Given a started service without a database", t, func() {
		svc := service.New(service.WithUniverse("u1"))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When a universe fork is published", func() {
			svc.Publish(model.Event{Name: model.UniverseForked, Fields: map[string]any{
				model.FieldUniverse:      "u1",
				model.FieldForkingMarket: "0xfork",
			}})

			Convey("Then the fork stays in progress after the forking-info reload", func() {
				So(waitFor(func() bool {
					st := engineStats(svc)
					return st.Forking && st.TasksStarted >= 1
				}), ShouldBeTrue)
				time.Sleep(200 * time.Millisecond)
				So(engineStats(svc).Forking, ShouldBeTrue)
			})
		})
	})
}
