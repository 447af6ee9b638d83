package pending_test

import (
	"testing"
	"time"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/pending"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given a pending store with a fixed clock", t, func() {
		now := time.Unix(1000, 0)
		s := pending.New(pending.WithClock(func() time.Time { return now }))
		key := model.PendingKey{ResourceID: "5_10_1_m1", Kind: model.PlaceOrder}

		Convey("When an action is added", func() {
			s.Add(key, map[string]any{"market": "m1"})

			Convey("Then it is pending", func() {
				a, ok := s.Get(key)
				So(ok, ShouldBeTrue)
				So(a.Status, ShouldEqual, model.StatusPending)
				So(a.UpdatedAt.Equal(now), ShouldBeTrue)
				So(s.Len(), ShouldEqual, 1)
			})

			Convey("Then the same resource with another kind is a different action", func() {
				_, ok := s.Get(model.PendingKey{ResourceID: key.ResourceID, Kind: model.CreateMarket})
				So(ok, ShouldBeFalse)
			})

			Convey("Then removing it twice reports only the first removal", func() {
				So(s.Remove(key), ShouldBeTrue)
				So(s.Remove(key), ShouldBeFalse)
				So(s.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a status is set for an unknown key", func() {
			k := model.PendingKey{ResourceID: "m1", Kind: model.SubmitReport}
			s.SetStatus(k, model.StatusSuccess)

			Convey("Then the record is created", func() {
				a, ok := s.Get(k)
				So(ok, ShouldBeTrue)
				So(a.Status, ShouldEqual, model.StatusSuccess)
			})
		})

		Convey("When listing", func() {
			s.Add(key, nil)
			now = now.Add(time.Second)
			s.Add(model.PendingKey{ResourceID: "0xtx", Kind: model.CreateMarket}, nil)

			Convey("Then newest comes first", func() {
				list := s.List()
				So(list, ShouldHaveLength, 2)
				So(list[0].Key.Kind, ShouldEqual, model.CreateMarket)
			})
		})
	})
}
