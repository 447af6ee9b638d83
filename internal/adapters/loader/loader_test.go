package loader

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/okian/tradesync/internal/adapters/chain"
	"github.com/okian/tradesync/internal/adapters/store/sqlstore"
	"github.com/okian/tradesync/internal/adapters/views"
	"github.com/okian/tradesync/internal/domain/reconcile"
	. "github.com/smartystreets/goconvey/convey"
)

var _ reconcile.Loader = (*Loader)(nil)

type fakeStore struct {
	calls []string
	last  map[string]any
	rows  map[string][]map[string]any
	err   error
}

func (f *fakeStore) Query(ctx context.Context, method string, params map[string]any) ([]map[string]any, error) {
	f.calls = append(f.calls, method)
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[method], nil
}

type fakeChain struct {
	tokenErr error
}

func (fakeChain) Balance(ctx context.Context, account string) (*big.Int, error) {
	return big.NewInt(7), nil
}

func (f fakeChain) TokenBalance(ctx context.Context, account string) (*big.Int, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return big.NewInt(9), nil
}

func (f fakeChain) Allowance(ctx context.Context, account string) (*big.Int, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return big.NewInt(100), nil
}

func TestLoader(t *testing.T) {
	Convey("Given a loader over a fake store", t, func() {
		ctx := context.Background()
		store := &fakeStore{rows: map[string][]map[string]any{
			sqlstore.MethodMarketOrderBook: {{"orderId": "o1"}},
			sqlstore.MethodMarketsInfo: {
				{"id": "m1", "transactionHash": "0xt1", "author": "0xabc", "volume": "3"},
				{"id": ""},
			},
			sqlstore.MethodForkingInfo: {{"forkingMarket": "m9"}},
			sqlstore.MethodTradingPositions: {
				{"market": "m1", "netPosition": "1"},
				{"market": "m2", "netPosition": "2"},
			},
		}}
		cache := views.New()
		l := New(cache, WithStore(store), WithChain(fakeChain{}))

		Convey("LoadOrderBook caches the rows by market", func() {
			So(l.LoadOrderBook(ctx, "m1"), ShouldBeNil)
			e, ok := cache.Get("orderBook:m1")
			So(ok, ShouldBeTrue)
			So(e.Value, ShouldHaveLength, 1)
			So(store.last["marketId"], ShouldEqual, "m1")
		})

		Convey("LoadMarketsInfo converts rows and skips rows without id", func() {
			infos, err := l.LoadMarketsInfo(ctx, []string{"m1"})
			So(err, ShouldBeNil)
			So(infos, ShouldHaveLength, 1)
			So(infos[0].TransactionHash, ShouldEqual, "0xt1")
			So(infos[0].Creator, ShouldEqual, "0xabc")
			_, ok := cache.Get("market:m1")
			So(ok, ShouldBeTrue)

			So(l.RemoveMarket(ctx, "m1"), ShouldBeNil)
			_, ok = cache.Get("market:m1")
			So(ok, ShouldBeFalse)
		})

		Convey("LoadForkingInfo defaults the universe", func() {
			f, known, err := l.LoadForkingInfo(ctx, "u1")
			So(err, ShouldBeNil)
			So(known, ShouldBeTrue)
			So(f, ShouldNotBeNil)
			So(f.ForkingMarket, ShouldEqual, "m9")
			So(f.Universe, ShouldEqual, "u1")
		})

		Convey("CheckPositions splits rows per market", func() {
			So(l.CheckPositions(ctx, "0xabc", []string{"m1", "m2"}), ShouldBeNil)
			e, ok := cache.Get("positions:0xabc:m2")
			So(ok, ShouldBeTrue)
			So(e.Value, ShouldHaveLength, 1)
		})

		Convey("UpdateAssets and CheckAccountAllowance read the chain", func() {
			So(l.UpdateAssets(ctx, "0xabc"), ShouldBeNil)
			e, _ := cache.Get("assets:0xabc")
			So(e.Value, ShouldResemble, Assets{Native: "7", Token: "9"})

			So(l.CheckAccountAllowance(ctx, "0xabc"), ShouldBeNil)
			e, _ = cache.Get("allowance:0xabc")
			So(e.Value, ShouldEqual, "100")
		})

		Convey("Store failures are returned", func() {
			store.err = errors.New("db down")
			So(l.LoadDisputeWindow(ctx, "u1"), ShouldNotBeNil)
		})

		Convey("TrackAnalytics keeps recent events", func() {
			l.trackedLimit = 2
			for _, n := range []string{"a", "b", "c"} {
				So(l.TrackAnalytics(ctx, n, nil), ShouldBeNil)
			}
			tr := l.Tracked()
			So(tr, ShouldHaveLength, 2)
			So(tr[0].Name, ShouldEqual, "b")
		})
	})

	Convey("Without a token the token reads are skipped", t, func() {
		cache := views.New()
		l := New(cache, WithChain(fakeChain{tokenErr: chain.ErrNoToken}))
		So(l.UpdateAssets(context.Background(), "0xabc"), ShouldBeNil)
		e, _ := cache.Get("assets:0xabc")
		So(e.Value, ShouldResemble, Assets{Native: "7"})
		So(l.CheckAccountAllowance(context.Background(), "0xabc"), ShouldBeNil)
	})

	Convey("Without a store loads are no-ops", t, func() {
		l := New(views.New())
		So(l.LoadOpenOrders(context.Background(), "0xabc"), ShouldBeNil)
		infos, err := l.LoadMarketsInfo(context.Background(), []string{"m1"})
		So(err, ShouldBeNil)
		So(infos, ShouldBeEmpty)
		f, known, err := l.LoadForkingInfo(context.Background(), "u1")
		So(err, ShouldBeNil)
		So(known, ShouldBeFalse)
		So(f, ShouldBeNil)
		So(l.UpdateAssets(context.Background(), "0xabc"), ShouldBeNil)
	})
}
