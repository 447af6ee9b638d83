package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/tradesync/internal/adapters/views"
	"github.com/okian/tradesync/internal/domain/alerts"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/pending"
	"github.com/okian/tradesync/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeChain struct {
	head model.ChainHead
	fork *model.ForkingInfo
}

func (f fakeChain) ChainHead() model.ChainHead { return f.head }

func (f fakeChain) Forking() (model.ForkingInfo, bool) {
	if f.fork == nil {
		return model.ForkingInfo{}, false
	}
	return *f.fork, true
}

type fakeQuerier struct {
	method string
	params map[string]any
	err    error
}

func (f *fakeQuerier) Methods() []string { return []string{"getMarkets", "getDisputeWindow"} }

func (f *fakeQuerier) Query(ctx context.Context, method string, params map[string]any) ([]map[string]any, error) {
	f.method, f.params = method, params
	if f.err != nil {
		return nil, f.err
	}
	return []map[string]any{{"id": "m1"}}, nil
}

func TestDispatch(t *testing.T) {
	Convey("Given a dispatcher with local and store methods", t, func() {
		ctx := context.Background()
		d := New()
		sessions := session.New(session.WithUniverse("u1"))
		al := alerts.New()
		pend := pending.New()
		cache := views.New()
		RegisterLocal(d, Local{
			Chain:     fakeChain{head: model.ChainHead{CurrentBlockNumber: 10}, fork: &model.ForkingInfo{Universe: "u1"}},
			Sessions:  sessions,
			Alerts:    al,
			Pending:   pend,
			Views:     cache,
			Supported: []model.EventName{model.MarketCreated},
		})
		q := &fakeQuerier{}
		RegisterStore(d, q)

		Convey("Every method is listed", func() {
			So(d.Methods(), ShouldResemble, []string{
				"getAlerts", "getDisputeWindow", "getMarkets", "getPendingActions",
				"getSession", "getSupportedEvents", "getSyncStatus", "getView",
			})
		})

		Convey("getSyncStatus reports the head and fork", func() {
			res, err := d.Dispatch(ctx, MethodSyncStatus, nil)
			So(err, ShouldBeNil)
			st := res.(SyncStatus)
			So(st.CurrentBlockNumber, ShouldEqual, int64(10))
			So(st.Forking, ShouldBeTrue)
		})

		Convey("getSession reflects session writes", func() {
			sessions.SignIn("0xabc")
			res, err := d.Dispatch(ctx, MethodSession, nil)
			So(err, ShouldBeNil)
			So(res.(model.Session).Identity.Address, ShouldEqual, "0xabc")
		})

		Convey("getView returns cached views and null for misses", func() {
			cache.Set(views.Key(views.KindOrderBook, "m1"), "book")
			res, err := d.Dispatch(ctx, MethodView, []any{map[string]any{"key": "orderBook:m1"}})
			So(err, ShouldBeNil)
			So(res.(views.Entry).Value, ShouldEqual, "book")

			res, err = d.Dispatch(ctx, MethodView, []any{map[string]any{"key": "orderBook:m2"}})
			So(err, ShouldBeNil)
			So(res, ShouldBeNil)

			_, err = d.Dispatch(ctx, MethodView, []any{"orderBook:m1"})
			So(errors.Is(err, ErrDispatch), ShouldBeTrue)
			So(errors.Is(err, ErrInvalidParams), ShouldBeTrue)
		})

		Convey("Store methods pass the object param through", func() {
			res, err := d.Dispatch(ctx, "getMarkets", []any{map[string]any{"universe": "u1"}})
			So(err, ShouldBeNil)
			So(res, ShouldHaveLength, 1)
			So(q.method, ShouldEqual, "getMarkets")
			So(q.params["universe"], ShouldEqual, "u1")
		})

		Convey("Store failures wrap ErrDispatch", func() {
			q.err = errors.New("db down")
			_, err := d.Dispatch(ctx, "getDisputeWindow", nil)
			So(errors.Is(err, ErrDispatch), ShouldBeTrue)
		})

		Convey("Unknown methods fail with ErrUnknownMethod", func() {
			_, err := d.Dispatch(ctx, "getNothing", nil)
			So(errors.Is(err, ErrUnknownMethod), ShouldBeTrue)
		})
	})
}
