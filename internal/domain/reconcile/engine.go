// Package reconcile turns domain events into derived-state updates for the
// connected user: data reloads, alerts and pending-action transitions.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tradesync/internal/domain/alerts"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/pending"
	"github.com/okian/tradesync/internal/domain/throttle"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/sourcegraph/conc/panics"
)

// Loader performs the secondary loads triggered by events. Calls run
// outside the event loop and may block.
type Loader interface {
	UpdateAssets(ctx context.Context, account string) error
	CheckAccountAllowance(ctx context.Context, account string) error
	LoadAnalytics(ctx context.Context, account string, since int64) error
	TrackAnalytics(ctx context.Context, name string, payload map[string]any) error
	LoadOrderBook(ctx context.Context, market string) error
	LoadOpenOrders(ctx context.Context, account string) error
	LoadTradingHistory(ctx context.Context, market string) error
	CheckPositions(ctx context.Context, account string, markets []string) error
	LoadAllPositions(ctx context.Context, account string) error
	LoadMarketsInfo(ctx context.Context, markets []string) ([]model.MarketInfo, error)
	RemoveMarket(ctx context.Context, market string) error
	UpdateMarketsData(ctx context.Context, markets []model.MarketInfo) error
	ReloadReportingPage(ctx context.Context, universe string, markets []string) error
	ReloadDisputingPage(ctx context.Context, universe string, markets []string) error
	LoadUniverseDetails(ctx context.Context, universe, account string) error
	// LoadForkingInfo reports known=false when it had nothing to query.
	LoadForkingInfo(ctx context.Context, universe string) (info *model.ForkingInfo, known bool, err error)
	LoadReportingHistory(ctx context.Context, universe, account string) error
	LoadDisputeWindow(ctx context.Context, universe string) error
	LoadFrozenFunds(ctx context.Context, account string) error
}

// Sessions supplies the authoritative session state.
type Sessions interface {
	Snapshot() model.Session
}

// PendingStore is the subset of the pending-action store the engine mutates.
type PendingStore interface {
	Remove(key model.PendingKey) bool
	SetStatus(key model.PendingKey, status model.PendingStatus)
}

// AlertStore receives alert upserts.
type AlertStore interface {
	Upsert(a model.Alert)
}

type handlerFunc func(ctx context.Context, s model.Session, logs []model.Event) error

// Stats summarizes engine activity.
type Stats struct {
	Handled      uint64          `json:"handled"`
	Ignored      uint64          `json:"ignored"`
	Failed       uint64          `json:"failed"`
	TasksStarted uint64          `json:"tasks_started"`
	TasksFailed  uint64          `json:"tasks_failed"`
	ChainHead    model.ChainHead `json:"chain_head"`
	Forking      bool            `json:"forking"`
}

// Engine handles one event at a time. Handle must be called from a single
// goroutine; the accessors are safe for concurrent use.
type Engine struct {
	loader   Loader
	sessions Sessions
	pending  PendingStore
	alerts   AlertStore
	log      logger.Logger
	now      func() time.Time

	orderBookInterval  time.Duration
	openOrdersInterval time.Duration
	taskTimeout        time.Duration

	orderBook  *throttle.Throttler
	openOrders *throttle.Throttler
	tasks      *taskGroup
	cancel     context.CancelFunc

	handlers map[model.EventName]handlerFunc

	mu   sync.RWMutex
	head model.ChainHead
	fork *model.ForkingInfo

	handled atomic.Uint64
	ignored atomic.Uint64
	failed  atomic.Uint64
}

// New builds the engine and checks that every event name of the taxonomy
// has a handler.
func New(loader Loader, sessions Sessions, opts ...Option) (*Engine, error) {
	e := &Engine{
		loader:             loader,
		sessions:           sessions,
		log:                logger.Nop(),
		now:                time.Now,
		orderBookInterval:  defaultOrderBookInterval,
		openOrdersInterval: defaultOpenOrdersInterval,
		taskTimeout:        defaultTaskTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pending == nil {
		e.pending = pending.New()
	}
	if e.alerts == nil {
		e.alerts = alerts.New()
	}

	e.orderBook = throttle.New(e.orderBookInterval, throttle.WithClock(e.now), throttle.WithName("order_book"))
	e.openOrders = throttle.New(e.openOrdersInterval, throttle.WithClock(e.now), throttle.WithName("open_orders"))

	base, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.tasks = &taskGroup{base: base, timeout: e.taskTimeout, log: e.log}

	e.handlers = e.registrations()
	if err := validate(e.handlers); err != nil {
		cancel()
		return nil, err
	}
	return e, nil
}

func validate(handlers map[model.EventName]handlerFunc) error {
	var missing []string
	for _, name := range model.Taxonomy() {
		if name == model.NewBlock {
			continue
		}
		if _, ok := handlers[name]; !ok {
			missing = append(missing, string(name))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %v", ErrIncompleteTaxonomy, missing)
	}
	return nil
}

// removalAware lists the handlers that undo their effect for removed logs.
// Removed logs of any other name are ignored.
var removalAware = map[model.EventName]bool{
	model.MarketCreated: true,
}

// Handle reconciles one event against the current session. A block tick
// updates the chain head before any embedded log is dispatched. A removed
// (reorged) tick leaves the head alone and its logs reach only
// removal-aware handlers, marked removed.
func (e *Engine) Handle(ctx context.Context, ev model.Event) error {
	s := e.sessions.Snapshot()
	if ev.Name != model.NewBlock {
		if ev.Removed && !removalAware[ev.Name] {
			e.ignore(ctx, ev.Name, "removed event")
			return nil
		}
		return e.dispatch(ctx, s, ev.Name, []model.Event{ev})
	}

	if ev.Removed {
		return e.onRemovedBlock(ctx, s, ev)
	}
	errs := []error{e.invoke(ctx, ev.Name, ev, func() error { return e.onBlockTick(s, ev) })}
	for _, g := range groupByName(ev.Logs) {
		errs = append(errs, e.dispatch(ctx, s, g.name, g.logs))
	}
	return errors.Join(errs...)
}

func (e *Engine) onRemovedBlock(ctx context.Context, s model.Session, ev model.Event) error {
	e.log.Info(ctx, "block removed by reorg",
		logger.String("block_hash", ev.String(model.FieldBlockHash)),
		logger.Int("logs", len(ev.Logs)))
	e.handled.Add(1)
	metrics.RecordEventHandled(string(ev.Name))

	var errs []error
	for _, g := range groupByName(ev.Logs) {
		if !removalAware[g.name] {
			e.ignore(ctx, g.name, "removed event")
			continue
		}
		logs := make([]model.Event, len(g.logs))
		for i, l := range g.logs {
			l.Removed = true
			logs[i] = l
		}
		errs = append(errs, e.dispatch(ctx, s, g.name, logs))
	}
	return errors.Join(errs...)
}

func (e *Engine) ignore(ctx context.Context, name model.EventName, reason string) {
	e.ignored.Add(1)
	metrics.RecordEventIgnored(string(name))
	e.log.Debug(ctx, reason, logger.String("event", string(name)))
}

func (e *Engine) dispatch(ctx context.Context, s model.Session, name model.EventName, logs []model.Event) error {
	h, ok := e.handlers[name]
	if !ok {
		e.ignore(ctx, name, "no handler for event")
		return nil
	}
	return e.invoke(ctx, name, logs, func() error { return h(ctx, s, logs) })
}

// invoke isolates one handler run. Panics and errors become ErrHandler.
func (e *Engine) invoke(ctx context.Context, name model.EventName, payload any, fn func() error) error {
	start := time.Now()
	var err error
	if r := panics.Try(func() { err = fn() }); r != nil {
		err = r.AsError()
	}
	metrics.RecordHandlerLatency(string(name), float64(time.Since(start).Nanoseconds())/1e6)

	if err != nil {
		e.failed.Add(1)
		metrics.RecordHandlerError(string(name))
		err = fmt.Errorf("%w: %s: %w", ErrHandler, name, err)
		e.log.Error(ctx, "event handler failed",
			logger.String("event", string(name)),
			logger.Any("payload", payload),
			logger.Error(err),
		)
		return err
	}
	e.handled.Add(1)
	metrics.RecordEventHandled(string(name))
	return nil
}

func (e *Engine) onBlockTick(s model.Session, ev model.Event) error {
	prev := e.setHead(model.ChainHeadFromEvent(ev))
	if !s.Identity.IsLogged {
		return nil
	}
	account := s.Identity.Address
	e.tasks.Go("update_assets", func(ctx context.Context) error {
		return e.loader.UpdateAssets(ctx, account)
	})
	e.tasks.Go("check_allowance", func(ctx context.Context) error {
		return e.loader.CheckAccountAllowance(ctx, account)
	})
	e.tasks.Go("load_analytics", func(ctx context.Context) error {
		return e.loader.LoadAnalytics(ctx, account, prev.Timestamp)
	})
	return nil
}

type group struct {
	name model.EventName
	logs []model.Event
}

// groupByName keeps first-appearance order across groups and arrival
// order within each group.
func groupByName(logs []model.Event) []group {
	idx := make(map[model.EventName]int)
	var out []group
	for _, l := range logs {
		i, ok := idx[l.Name]
		if !ok {
			i = len(out)
			idx[l.Name] = i
			out = append(out, group{name: l.Name})
		}
		out[i].logs = append(out[i].logs, l)
	}
	return out
}

func (e *Engine) setHead(h model.ChainHead) model.ChainHead {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.head
	e.head = h
	return prev
}

// ChainHead returns the latest sync status.
func (e *Engine) ChainHead() model.ChainHead {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.head
}

// Forking returns the fork in progress, if any.
func (e *Engine) Forking() (model.ForkingInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fork == nil {
		return model.ForkingInfo{}, false
	}
	return *e.fork, true
}

func (e *Engine) setFork(f *model.ForkingInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f == nil {
		e.fork = nil
		return
	}
	cp := *f
	e.fork = &cp
}

// Stats returns engine counters.
func (e *Engine) Stats() Stats {
	_, forking := e.Forking()
	return Stats{
		Handled:      e.handled.Load(),
		Ignored:      e.ignored.Load(),
		Failed:       e.failed.Load(),
		TasksStarted: e.tasks.started.Load(),
		TasksFailed:  e.tasks.failed.Load(),
		ChainHead:    e.ChainHead(),
		Forking:      forking,
	}
}

// Wait blocks until all outstanding secondary loads finish.
func (e *Engine) Wait() { e.tasks.Wait() }

// Close cancels outstanding loads and waits for them to return.
func (e *Engine) Close() {
	e.cancel()
	e.tasks.Wait()
}
