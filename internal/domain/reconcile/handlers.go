package reconcile

import (
	"context"
	"fmt"

	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
)

const openOrdersKey = "open_orders"

// Analytics event names forwarded to the loader.
const (
	analyticsOrderFilled   = "orderFilled"
	analyticsMarketCreated = "marketCreationCreated"
)

func (e *Engine) registrations() map[model.EventName]handlerFunc {
	return map[model.EventName]handlerFunc{
		model.OrderEvent:    e.onOrderEvent,
		model.OrderCreated:  e.onOrderCreated,
		model.OrderCanceled: e.onOrderCanceled,
		model.OrderExpired:  e.onOrderCanceled,
		model.OrderFilled:   e.onOrderFilled,

		model.MarketCreated:               e.onMarketCreated,
		model.MarketsUpdated:              e.onMarketsUpdated,
		model.ReportingStateChanged:       e.onMarketsChanged,
		model.MarketParticipantsDisavowed: e.onMarketsChanged,
		model.MarketTransferred:           e.onMarketsChanged,
		model.MarketMigrated:              e.onMarketMigrated,
		model.MarketFinalized:             e.onMarketFinalized,

		model.TokensTransferred:   e.onTokensTransferred,
		model.TokenBalanceChanged: e.onTokenBalanceChanged,
		model.TokensMinted:        e.onTokensMinted,
		model.ProfitLossChanged:   e.onProfitLossChanged,

		model.InitialReportSubmitted:        e.onInitialReportSubmitted,
		model.InitialReporterRedeemed:       e.onInitialReporterRedeemed,
		model.InitialReporterTransferred:    e.onInitialReporterTransferred,
		model.ParticipationTokensRedeemed:   e.onParticipationTokensRedeemed,
		model.ReportingParticipantDisavowed: e.onReportingParticipantDisavowed,
		model.TradingProceedsClaimed:        e.onTradingProceedsClaimed,

		model.DisputeCrowdsourcerCreated:      e.onDisputeChanged,
		model.DisputeCrowdsourcerCompleted:    e.onDisputeChanged,
		model.DisputeCrowdsourcerContribution: e.onDisputeContribution,
		model.DisputeCrowdsourcerRedeemed:     e.onDisputeRedeemed,
		model.DisputeWindowCreated:            e.onDisputeWindowCreated,
		model.UniverseForked:                  e.onUniverseForked,
	}
}

// ---- orders ----

func (e *Engine) onOrderEvent(ctx context.Context, s model.Session, logs []model.Event) error {
	for _, l := range logs {
		typ, ok := model.ParseOrderEventType(l)
		if !ok {
			e.log.Warn(ctx, "unknown order event type", logger.String("event_type", l.String(model.FieldEventType)))
			continue
		}
		var err error
		switch typ {
		case model.OrderEventCreate:
			err = e.onOrderCreated(ctx, s, []model.Event{l})
		case model.OrderEventCancel, model.OrderEventExpire:
			err = e.onOrderCanceled(ctx, s, []model.Event{l})
		case model.OrderEventFill:
			err = e.onOrderFilled(ctx, s, []model.Event{l})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) onOrderCreated(_ context.Context, s model.Session, logs []model.Event) error {
	for _, l := range logs {
		if s.Owns(l.String(model.FieldOrderCreator)) {
			e.alert(l.TxHash(), model.AlertPublicTrade, l, false)
			e.reloadOpenOrders(s.Identity.Address)
			if key, ok := model.OrderKeyFromEvent(l); ok {
				e.pending.Remove(model.PendingKey{ResourceID: key.String(), Kind: model.PlaceOrder})
			}
		}
		e.reloadOrderBook(l.Market())
	}
	return nil
}

func (e *Engine) onOrderCanceled(_ context.Context, s model.Session, logs []model.Event) error {
	for _, l := range logs {
		if s.Owns(l.String(model.FieldOrderCreator)) {
			e.alert(l.String(model.FieldOrderID), model.AlertCancelOrder, l, false)
			e.reloadOpenOrders(s.Identity.Address)
		}
		e.reloadOrderBook(l.Market())
	}
	return nil
}

func (e *Engine) onOrderFilled(_ context.Context, s model.Session, logs []model.Event) error {
	for _, l := range logs {
		market := l.Market()
		creator := s.Owns(l.String(model.FieldOrderCreator))
		if creator || s.Owns(l.String(model.FieldOrderFiller)) {
			account := s.Identity.Address
			payload := map[string]any{"market": market, "isMaker": creator, "log": l.Fields}
			e.tasks.Go("track_analytics", func(ctx context.Context) error {
				return e.loader.TrackAnalytics(ctx, analyticsOrderFilled, payload)
			})
			e.reloadOpenOrders(account)
			e.alert(l.TxHash(), model.AlertPublicFillOrder, l, true)
			e.pending.Remove(model.PendingKey{ResourceID: l.String(model.FieldTradeGroupID), Kind: model.PlaceOrder})
			e.tasks.Go("check_positions", func(ctx context.Context) error {
				return e.loader.CheckPositions(ctx, account, []string{market})
			})
		}
		e.reloadOrderBook(market)
		if s.OnTrade(market) {
			e.tasks.Go("trading_history", func(ctx context.Context) error {
				return e.loader.LoadTradingHistory(ctx, market)
			})
		}
	}
	return nil
}

// ---- markets ----

func (e *Engine) onMarketCreated(_ context.Context, s model.Session, logs []model.Event) error {
	mine := e.mine(s, logs, model.FieldMarketCreator)
	for _, l := range mine {
		market := l.Market()
		if l.Removed {
			e.tasks.Go("remove_market", func(ctx context.Context) error {
				return e.loader.RemoveMarket(ctx, market)
			})
			continue
		}
		e.tasks.Go("market_created", func(ctx context.Context) error {
			infos, err := e.loader.LoadMarketsInfo(ctx, []string{market})
			if err != nil {
				return fmt.Errorf("load market %s: %w", market, err)
			}
			for _, info := range infos {
				tx := info.TransactionHash
				if tx == "" {
					tx = l.TxHash()
				}
				e.pending.Remove(model.PendingKey{ResourceID: tx, Kind: model.CreateMarket})
				e.alert(l.TxHash(), model.AlertCreateMarket, l, false)
				payload := map[string]any{"market": info, "extraInfo": l.String(model.FieldExtraInfo)}
				if err := e.loader.TrackAnalytics(ctx, analyticsMarketCreated, payload); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if len(mine) > 0 {
		account := s.Identity.Address
		e.tasks.Go("frozen_funds", func(ctx context.Context) error {
			return e.loader.LoadFrozenFunds(ctx, account)
		})
	}
	return nil
}

func (e *Engine) onMarketsUpdated(_ context.Context, s model.Session, logs []model.Event) error {
	var infos []model.MarketInfo
	for _, l := range logs {
		infos = append(infos, model.MarketInfosFromEvent(l)...)
	}
	if len(infos) == 0 {
		return nil
	}
	ids := make([]string, 0, len(infos))
	for _, mi := range infos {
		ids = append(ids, mi.ID)
	}
	e.tasks.Go("update_markets", func(ctx context.Context) error {
		return e.loader.UpdateMarketsData(ctx, infos)
	})
	e.reloadReporting(s, ids)
	e.reloadDisputing(s, ids)
	return nil
}

func (e *Engine) onMarketsChanged(_ context.Context, _ model.Session, logs []model.Event) error {
	ids := model.Markets(logs)
	if len(ids) == 0 {
		return nil
	}
	e.loadMarketsInfo(ids)
	return nil
}

func (e *Engine) onMarketMigrated(_ context.Context, s model.Session, logs []model.Event) error {
	for _, l := range logs {
		market := l.Market()
		if l.String(model.FieldOriginalUniverse) == s.Universe {
			e.tasks.Go("remove_market", func(ctx context.Context) error {
				return e.loader.RemoveMarket(ctx, market)
			})
		} else {
			e.loadMarketsInfo([]string{market})
		}
	}
	e.loadUniverseDetails(s.Universe, s.Identity.Address)
	return nil
}

func (e *Engine) onMarketFinalized(_ context.Context, s model.Session, logs []model.Event) error {
	if fork, ok := e.Forking(); ok {
		for _, l := range logs {
			if l.Market() == fork.ForkingMarket {
				e.reloadForkingInfo(s.Universe)
				break
			}
		}
	}
	if s.Identity.IsLogged {
		account, ids := s.Identity.Address, model.Markets(logs)
		e.tasks.Go("check_positions", func(ctx context.Context) error {
			return e.loader.CheckPositions(ctx, account, ids)
		})
	}
	return nil
}

// ---- tokens ----

func (e *Engine) onTokensTransferred(ctx context.Context, s model.Session, logs []model.Event) error {
	return e.onTokenMovement(ctx, s, logs, model.FieldFrom, model.FieldTo)
}

func (e *Engine) onTokenBalanceChanged(ctx context.Context, s model.Session, logs []model.Event) error {
	return e.onTokenMovement(ctx, s, logs, model.FieldOwner)
}

// onTokenMovement routes the user's token movements through fork
// reconciliation while a fork is in progress.
func (e *Engine) onTokenMovement(_ context.Context, s model.Session, logs []model.Event, keys ...string) error {
	if len(e.mine(s, logs, keys...)) == 0 {
		return nil
	}
	if _, forking := e.Forking(); forking {
		e.loadUniverseDetails(s.Universe, s.Identity.Address)
		return nil
	}
	account := s.Identity.Address
	e.tasks.Go("update_assets", func(ctx context.Context) error {
		return e.loader.UpdateAssets(ctx, account)
	})
	return nil
}

func (e *Engine) onTokensMinted(_ context.Context, s model.Session, logs []model.Event) error {
	_, forking := e.Forking()
	for _, l := range e.mine(s, logs, model.FieldTarget) {
		typ, _ := l.Int64(model.FieldTokenType)
		switch model.TokenType(typ) {
		case model.ParticipationToken:
			e.pending.Remove(model.PendingKey{ResourceID: string(model.BuyParticipationTokens), Kind: model.BuyParticipationTokens})
			e.loadReportingHistory(s)
			e.loadDisputeWindow(s.Universe)
		case model.ReputationToken:
			if forking {
				universe := l.String(model.FieldUniverse)
				if universe == "" {
					universe = s.Universe
				}
				e.loadUniverseDetails(universe, s.Identity.Address)
				continue
			}
			e.alert(l.String(model.FieldBlockHash), model.AlertMigrateFromLegRep, l, false)
			e.pending.SetStatus(model.PendingKey{ResourceID: string(model.MigrateV1V2), Kind: model.MigrateV1V2}, model.StatusSuccess)
		}
	}
	return nil
}

func (e *Engine) onProfitLossChanged(_ context.Context, s model.Session, logs []model.Event) error {
	if len(e.mine(s, logs, model.FieldAccount)) == 0 {
		return nil
	}
	account := s.Identity.Address
	e.tasks.Go("all_positions", func(ctx context.Context) error {
		return e.loader.LoadAllPositions(ctx, account)
	})
	return nil
}

// ---- reporting ----

func (e *Engine) onInitialReportSubmitted(_ context.Context, s model.Session, logs []model.Event) error {
	mine := e.mine(s, logs, model.FieldReporter)
	for _, l := range mine {
		e.alert(l.TxHash(), model.AlertDoInitialReport, l, false)
		e.pending.SetStatus(model.PendingKey{ResourceID: l.Market(), Kind: model.SubmitReport}, model.StatusSuccess)
	}
	if len(mine) > 0 {
		e.loadReportingHistory(s)
	}
	e.reloadReporting(s, model.Markets(mine))
	return nil
}

func (e *Engine) onInitialReporterRedeemed(_ context.Context, s model.Session, logs []model.Event) error {
	if len(e.mine(s, logs, model.FieldReporter)) > 0 {
		e.loadReportingHistory(s)
	}
	return nil
}

func (e *Engine) onInitialReporterTransferred(_ context.Context, s model.Session, logs []model.Event) error {
	mine := e.mine(s, logs, model.FieldFrom, model.FieldTo)
	if len(mine) > 0 {
		e.loadReportingHistory(s)
	}
	e.reloadReporting(s, model.Markets(mine))
	return nil
}

func (e *Engine) onParticipationTokensRedeemed(_ context.Context, s model.Session, logs []model.Event) error {
	mine := e.mine(s, logs, model.FieldAccount)
	for _, l := range mine {
		e.alert(l.TxHash(), model.AlertRedeemStake, l, false)
	}
	if len(mine) > 0 {
		e.loadReportingHistory(s)
	}
	return nil
}

func (e *Engine) onReportingParticipantDisavowed(_ context.Context, s model.Session, logs []model.Event) error {
	if len(e.mine(s, logs, model.FieldReportingParticipant)) > 0 {
		e.loadReportingHistory(s)
	}
	return nil
}

func (e *Engine) onTradingProceedsClaimed(_ context.Context, s model.Session, logs []model.Event) error {
	for _, l := range e.mine(s, logs, model.FieldSender) {
		e.alert(l.Market(), model.AlertClaimTradingProceeds, l, false)
	}
	return nil
}

// ---- disputing ----

func (e *Engine) onDisputeChanged(_ context.Context, s model.Session, _ []model.Event) error {
	e.reloadDisputing(s, nil)
	return nil
}

func (e *Engine) onDisputeContribution(_ context.Context, s model.Session, logs []model.Event) error {
	mine := e.mine(s, logs, model.FieldReporter)
	for _, l := range mine {
		e.alert(l.TxHash(), model.AlertContribute, l, false)
		e.pending.Remove(model.PendingKey{ResourceID: l.Market(), Kind: model.SubmitDispute})
	}
	if len(mine) > 0 {
		e.loadReportingHistory(s)
	}
	e.reloadDisputing(s, nil)
	return nil
}

func (e *Engine) onDisputeRedeemed(_ context.Context, s model.Session, logs []model.Event) error {
	if len(e.mine(s, logs, model.FieldReporter)) > 0 {
		e.loadReportingHistory(s)
	}
	return nil
}

func (e *Engine) onDisputeWindowCreated(_ context.Context, s model.Session, logs []model.Event) error {
	if len(logs) == 0 {
		return nil
	}
	e.loadDisputeWindow(s.Universe)
	e.loadReportingHistory(s)
	e.reloadDisputing(s, nil)
	return nil
}

func (e *Engine) onUniverseForked(_ context.Context, s model.Session, logs []model.Event) error {
	if len(logs) == 0 {
		return nil
	}
	last := logs[len(logs)-1]
	universe := last.String(model.FieldUniverse)
	if universe == "" {
		universe = s.Universe
	}
	e.setFork(&model.ForkingInfo{ForkingMarket: last.String(model.FieldForkingMarket), Universe: universe})
	e.reloadForkingInfo(universe)
	e.reloadDisputing(s, nil)
	return nil
}

// ---- shared effects ----

// mine returns the logs whose address fields match the logged-in account.
func (e *Engine) mine(s model.Session, logs []model.Event, keys ...string) []model.Event {
	if !s.Identity.IsLogged {
		return nil
	}
	return model.FilterByAddress(logs, s.Identity.Address, keys...)
}

func (e *Engine) alert(id string, name model.AlertName, l model.Event, toast bool) {
	if id == "" {
		return
	}
	params := make(map[string]any, len(l.Fields))
	for k, v := range l.Fields {
		params[k] = v
	}
	e.alerts.Upsert(model.Alert{
		ID:        id,
		Name:      name,
		Params:    params,
		Status:    model.StatusSuccess,
		Toast:     toast,
		Timestamp: e.ChainHead().Timestamp * 1000,
	})
}

func (e *Engine) reloadOrderBook(market string) {
	if market == "" {
		return
	}
	e.orderBook.Do(market, func() {
		e.tasks.Go("order_book", func(ctx context.Context) error {
			return e.loader.LoadOrderBook(ctx, market)
		})
	})
}

func (e *Engine) reloadOpenOrders(account string) {
	e.openOrders.Do(openOrdersKey, func() {
		e.tasks.Go("open_orders", func(ctx context.Context) error {
			return e.loader.LoadOpenOrders(ctx, account)
		})
	})
}

func (e *Engine) loadMarketsInfo(ids []string) {
	e.tasks.Go("markets_info", func(ctx context.Context) error {
		_, err := e.loader.LoadMarketsInfo(ctx, ids)
		return err
	})
}

func (e *Engine) loadUniverseDetails(universe, account string) {
	e.tasks.Go("universe_details", func(ctx context.Context) error {
		return e.loader.LoadUniverseDetails(ctx, universe, account)
	})
}

func (e *Engine) loadReportingHistory(s model.Session) {
	universe, account := s.Universe, s.Identity.Address
	e.tasks.Go("reporting_history", func(ctx context.Context) error {
		return e.loader.LoadReportingHistory(ctx, universe, account)
	})
}

func (e *Engine) loadDisputeWindow(universe string) {
	e.tasks.Go("dispute_window", func(ctx context.Context) error {
		return e.loader.LoadDisputeWindow(ctx, universe)
	})
}

// reloadForkingInfo replaces the fork state with the loaded one. A reload
// that could not query anything leaves the current state in place.
func (e *Engine) reloadForkingInfo(universe string) {
	e.tasks.Go("forking_info", func(ctx context.Context) error {
		info, known, err := e.loader.LoadForkingInfo(ctx, universe)
		if err != nil {
			return err
		}
		if !known {
			e.log.Debug(ctx, "forking info unavailable, keeping fork state", logger.String("universe", universe))
			return nil
		}
		e.setFork(info)
		return nil
	})
}

func (e *Engine) reloadReporting(s model.Session, ids []string) {
	if s.View.Page != model.PageReporting {
		return
	}
	if ids == nil {
		ids = []string{}
	}
	universe := s.Universe
	e.tasks.Go("reporting_page", func(ctx context.Context) error {
		return e.loader.ReloadReportingPage(ctx, universe, ids)
	})
}

func (e *Engine) reloadDisputing(s model.Session, ids []string) {
	if s.View.Page != model.PageDisputing {
		return
	}
	if ids == nil {
		ids = []string{}
	}
	universe := s.Universe
	e.tasks.Go("disputing_page", func(ctx context.Context) error {
		return e.loader.ReloadDisputingPage(ctx, universe, ids)
	})
}
