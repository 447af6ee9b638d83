// Package loader performs the secondary loads requested by the
// reconciliation engine and caches their results as views.
package loader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/okian/tradesync/internal/adapters/chain"
	"github.com/okian/tradesync/internal/adapters/store/sqlstore"
	"github.com/okian/tradesync/internal/adapters/views"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
)

const defaultTrackedLimit = 100

// Querier serves named read queries.
type Querier interface {
	Query(ctx context.Context, method string, params map[string]any) ([]map[string]any, error)
}

// ChainReader reads on-chain balances.
type ChainReader interface {
	Balance(ctx context.Context, account string) (*big.Int, error)
	TokenBalance(ctx context.Context, account string) (*big.Int, error)
	Allowance(ctx context.Context, account string) (*big.Int, error)
}

// Tracked is one analytics event recorded by TrackAnalytics.
type Tracked struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Assets is the cached result of UpdateAssets.
type Assets struct {
	Native string `json:"native"`
	Token  string `json:"token,omitempty"`
}

// Loader is safe for concurrent use. A nil Querier or ChainReader turns
// the corresponding loads into no-ops.
type Loader struct {
	store Querier
	chain ChainReader
	views *views.Cache
	log   logger.Logger

	mu           sync.Mutex
	tracked      []Tracked
	trackedLimit int
}

// Option configures a Loader.
type Option func(*Loader)

// WithStore sets the query backend.
func WithStore(q Querier) Option {
	return func(l *Loader) { l.store = q }
}

// WithChain sets the chain reader.
func WithChain(c ChainReader) Option {
	return func(l *Loader) { l.chain = c }
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}

// New creates a loader writing into cache.
func New(cache *views.Cache, opts ...Option) *Loader {
	l := &Loader{views: cache, log: logger.Nop(), trackedLimit: defaultTrackedLimit}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// load runs method and caches its rows under key.
func (l *Loader) load(ctx context.Context, key, method string, params map[string]any) ([]map[string]any, error) {
	if l.store == nil {
		l.log.Debug(ctx, "no store configured, skipping load", logger.String("method", method))
		return nil, nil
	}
	rows, err := l.store.Query(ctx, method, params)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	l.views.Set(key, rows)
	return rows, nil
}

// UpdateAssets refreshes the native and trading-token balances of account.
func (l *Loader) UpdateAssets(ctx context.Context, account string) error {
	if l.chain == nil {
		return nil
	}
	native, err := l.chain.Balance(ctx, account)
	if err != nil {
		return fmt.Errorf("update assets: %w", err)
	}
	a := Assets{Native: native.String()}
	token, err := l.chain.TokenBalance(ctx, account)
	switch {
	case errors.Is(err, chain.ErrNoToken):
	case err != nil:
		return fmt.Errorf("update assets: %w", err)
	default:
		a.Token = token.String()
	}
	l.views.Set(views.Key(views.KindAssets, account), a)
	return nil
}

// CheckAccountAllowance refreshes the trading allowance of account.
func (l *Loader) CheckAccountAllowance(ctx context.Context, account string) error {
	if l.chain == nil {
		return nil
	}
	v, err := l.chain.Allowance(ctx, account)
	if errors.Is(err, chain.ErrNoToken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check allowance: %w", err)
	}
	l.views.Set(views.Key(views.KindAllowance, account), v.String())
	return nil
}

// LoadAnalytics reloads account activity since the given unix time.
func (l *Loader) LoadAnalytics(ctx context.Context, account string, since int64) error {
	_, err := l.load(ctx, views.Key(views.KindAnalytics, account), sqlstore.MethodAnalytics,
		map[string]any{"account": account, "since": since})
	return err
}

// TrackAnalytics records a product analytics event. Only the most recent
// events are kept.
func (l *Loader) TrackAnalytics(ctx context.Context, name string, payload map[string]any) error {
	l.mu.Lock()
	l.tracked = append(l.tracked, Tracked{Name: name, Payload: payload})
	if over := len(l.tracked) - l.trackedLimit; over > 0 {
		l.tracked = append([]Tracked(nil), l.tracked[over:]...)
	}
	l.mu.Unlock()
	l.log.Info(ctx, "analytics event", logger.String("name", name))
	return nil
}

// Tracked returns the recorded analytics events, oldest first.
func (l *Loader) Tracked() []Tracked {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Tracked(nil), l.tracked...)
}

// LoadOrderBook reloads the order book of market.
func (l *Loader) LoadOrderBook(ctx context.Context, market string) error {
	_, err := l.load(ctx, views.Key(views.KindOrderBook, market), sqlstore.MethodMarketOrderBook,
		map[string]any{"marketId": market})
	return err
}

// LoadOpenOrders reloads the open orders of account.
func (l *Loader) LoadOpenOrders(ctx context.Context, account string) error {
	_, err := l.load(ctx, views.Key(views.KindOpenOrders, account), sqlstore.MethodAccountOpenOrders,
		map[string]any{"account": account})
	return err
}

// LoadTradingHistory reloads the trades of market.
func (l *Loader) LoadTradingHistory(ctx context.Context, market string) error {
	_, err := l.load(ctx, views.Key(views.KindTradingHistory, market), sqlstore.MethodTradingHistory,
		map[string]any{"marketId": market})
	return err
}

// CheckPositions reloads the positions of account in markets.
func (l *Loader) CheckPositions(ctx context.Context, account string, markets []string) error {
	rows, err := l.load(ctx, views.Key(views.KindPositions, account, "partial"), sqlstore.MethodTradingPositions,
		map[string]any{"account": account, "marketIds": markets})
	if err != nil || rows == nil {
		return err
	}
	for _, m := range markets {
		var mine []map[string]any
		for _, r := range rows {
			if model.SameAddress(fmt.Sprint(r["market"]), m) {
				mine = append(mine, r)
			}
		}
		l.views.Set(views.Key(views.KindPositions, account, m), mine)
	}
	return nil
}

// LoadAllPositions reloads every position of account.
func (l *Loader) LoadAllPositions(ctx context.Context, account string) error {
	_, err := l.load(ctx, views.Key(views.KindPositions, account), sqlstore.MethodTradingPositions,
		map[string]any{"account": account})
	return err
}

// LoadMarketsInfo loads markets and caches each one.
func (l *Loader) LoadMarketsInfo(ctx context.Context, markets []string) ([]model.MarketInfo, error) {
	if l.store == nil || len(markets) == 0 {
		return nil, nil
	}
	rows, err := l.store.Query(ctx, sqlstore.MethodMarketsInfo, map[string]any{"marketIds": markets})
	if err != nil {
		return nil, fmt.Errorf("load markets info: %w", err)
	}
	infos := make([]model.MarketInfo, 0, len(rows))
	for _, r := range rows {
		if mi, ok := model.MarketInfoFromRow(r); ok {
			infos = append(infos, mi)
		}
	}
	if err := l.UpdateMarketsData(ctx, infos); err != nil {
		return infos, fmt.Errorf("load markets info: %w", err)
	}
	return infos, nil
}

// RemoveMarket drops every cached view of market.
func (l *Loader) RemoveMarket(_ context.Context, market string) error {
	l.views.Delete(views.Key(views.KindMarket, market))
	l.views.Delete(views.Key(views.KindOrderBook, market))
	l.views.Delete(views.Key(views.KindTradingHistory, market))
	return nil
}

// UpdateMarketsData caches markets as given.
func (l *Loader) UpdateMarketsData(_ context.Context, markets []model.MarketInfo) error {
	for _, mi := range markets {
		l.views.Set(views.Key(views.KindMarket, mi.ID), mi)
	}
	return nil
}

// ReloadReportingPage reloads the reporting page of universe, narrowed to
// markets when non-empty.
func (l *Loader) ReloadReportingPage(ctx context.Context, universe string, markets []string) error {
	_, err := l.load(ctx, views.Key(views.KindReportingPage, universe), sqlstore.MethodReportingMarkets,
		map[string]any{"universe": universe, "marketIds": markets})
	return err
}

// ReloadDisputingPage reloads the disputing page of universe.
func (l *Loader) ReloadDisputingPage(ctx context.Context, universe string, markets []string) error {
	_, err := l.load(ctx, views.Key(views.KindDisputingPage, universe), sqlstore.MethodDisputingMarkets,
		map[string]any{"universe": universe, "marketIds": markets})
	return err
}

// LoadUniverseDetails reloads universe data and the account's balance in it.
func (l *Loader) LoadUniverseDetails(ctx context.Context, universe, account string) error {
	_, err := l.load(ctx, views.Key(views.KindUniverse, universe), sqlstore.MethodUniverseDetails,
		map[string]any{"universe": universe, "account": account})
	return err
}

// LoadForkingInfo returns the fork of universe, or nil when it is not
// forking. known is false when no store is configured: nothing was queried
// and the caller's fork state stands.
func (l *Loader) LoadForkingInfo(ctx context.Context, universe string) (info *model.ForkingInfo, known bool, err error) {
	if l.store == nil {
		return nil, false, nil
	}
	rows, err := l.load(ctx, views.Key(views.KindForkingInfo, universe), sqlstore.MethodForkingInfo,
		map[string]any{"universe": universe})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, true, nil
	}
	r := model.Event{Fields: rows[0]}
	f := &model.ForkingInfo{ForkingMarket: r.String(model.FieldForkingMarket), Universe: r.String(model.FieldUniverse)}
	if f.ForkingMarket == "" {
		return nil, true, nil
	}
	if f.Universe == "" {
		f.Universe = universe
	}
	return f, true, nil
}

// LoadReportingHistory reloads the reports of account in universe.
func (l *Loader) LoadReportingHistory(ctx context.Context, universe, account string) error {
	_, err := l.load(ctx, views.Key(views.KindReportingHistory, universe, account), sqlstore.MethodReportingHistory,
		map[string]any{"universe": universe, "reporter": account})
	return err
}

// LoadDisputeWindow reloads the current dispute window of universe.
func (l *Loader) LoadDisputeWindow(ctx context.Context, universe string) error {
	_, err := l.load(ctx, views.Key(views.KindDisputeWindow, universe), sqlstore.MethodDisputeWindow,
		map[string]any{"universe": universe})
	return err
}

// LoadFrozenFunds reloads the funds account has locked in markets.
func (l *Loader) LoadFrozenFunds(ctx context.Context, account string) error {
	_, err := l.load(ctx, views.Key(views.KindFrozenFunds, account), sqlstore.MethodAccountFrozenFunds,
		map[string]any{"account": account})
	return err
}
