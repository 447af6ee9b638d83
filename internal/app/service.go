// Package service wires the event source, the reconciliation engine and
// the transports into one process and implements the HTTP API
// dependencies.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tradesync/internal/adapters/chain"
	"github.com/okian/tradesync/internal/adapters/dispatch"
	"github.com/okian/tradesync/internal/adapters/feed/redisfeed"
	"github.com/okian/tradesync/internal/adapters/loader"
	"github.com/okian/tradesync/internal/adapters/mq/broadcast"
	eventqueue "github.com/okian/tradesync/internal/adapters/mq/queue"
	"github.com/okian/tradesync/internal/adapters/mq/worker"
	"github.com/okian/tradesync/internal/adapters/store/sqlstore"
	"github.com/okian/tradesync/internal/adapters/views"
	"github.com/okian/tradesync/internal/adapters/ws"
	"github.com/okian/tradesync/internal/domain/alerts"
	"github.com/okian/tradesync/internal/domain/dedupe"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/pending"
	"github.com/okian/tradesync/internal/domain/reconcile"
	"github.com/okian/tradesync/internal/domain/session"
	"github.com/okian/tradesync/internal/domain/subscription"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
)

const (
	defaultQueueSize          = 10_000
	defaultOrderBookInterval  = time.Second
	defaultOpenOrdersInterval = 2 * time.Second
	defaultTaskTimeout        = 30 * time.Second
	defaultAlertTTL           = 24 * time.Hour
	defaultViewTTL            = 5 * time.Minute
	defaultDedupeSize         = 4096
	workerName                = "reconcile"
)

// Service owns every long-lived component of the process.
type Service struct {
	mu sync.RWMutex

	// Configuration
	queueSize          int
	supported          []model.EventName
	universe           string
	orderBookInterval  time.Duration
	openOrdersInterval time.Duration
	taskTimeout        time.Duration
	alertTTL           time.Duration
	viewTTL            time.Duration
	dedupeSize         int
	databaseURL        string
	dbMaxOpen          int
	redisAddr          string
	redisChannel       string
	ethURL             string
	token              string
	spender            string
	wsOpts             []ws.Option

	// In-process state, available before Start.
	source   *broadcast.Broadcaster
	sessions *session.Store
	pending  *pending.Store
	alerts   *alerts.Store
	views    *views.Cache
	blocks   dedupe.Deduper

	// Components built by Start.
	store      *sqlstore.Store
	chain      *chain.Reader
	rdb        *redis.Client
	loader     *loader.Loader
	engine     *reconcile.Engine
	eventQueue *eventqueue.InMemoryQueue
	worker     *worker.InMemoryWorker
	dispatcher *dispatch.Dispatcher
	ws         *ws.Server
	listener   uint64

	tasks      conc.WaitGroup
	cancel     context.CancelFunc
	runCtx     context.Context
	dropped    atomic.Uint64
	duplicates atomic.Uint64
	started    bool

	logger logger.Logger
}

// New constructs a Service. In-process stores are created immediately;
// connections and goroutines are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:          defaultQueueSize,
		orderBookInterval:  defaultOrderBookInterval,
		openOrdersInterval: defaultOpenOrdersInterval,
		taskTimeout:        defaultTaskTimeout,
		alertTTL:           defaultAlertTTL,
		viewTTL:            defaultViewTTL,
		dedupeSize:         defaultDedupeSize,
		redisChannel:       redisfeed.DefaultChannel,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.supported) == 0 {
		s.supported = subscription.DefaultSupportedEvents()
	}

	s.source = broadcast.New()
	s.sessions = session.New(session.WithUniverse(s.universe))
	s.pending = pending.New()
	s.alerts = alerts.New(alerts.WithTTL(s.alertTTL))
	s.blocks = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.views = views.New(views.WithTTL(s.viewTTL))
	return s
}

// Start connects the optional backends and starts the reconciliation
// worker and the event feed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}

	s.logger.Info(ctx, "starting tradesync service...")

	if err := s.connect(ctx); err != nil {
		s.disconnect()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	var loaderOpts []loader.Option
	loaderOpts = append(loaderOpts, loader.WithLogger(s.logger))
	if s.store != nil {
		loaderOpts = append(loaderOpts, loader.WithStore(s.store))
	}
	if s.chain != nil {
		loaderOpts = append(loaderOpts, loader.WithChain(s.chain))
	}
	s.loader = loader.New(s.views, loaderOpts...)

	engine, err := reconcile.New(s.loader, s.sessions,
		reconcile.WithLogger(s.logger),
		reconcile.WithPending(s.pending),
		reconcile.WithAlerts(s.alerts),
		reconcile.WithOrderBookInterval(s.orderBookInterval),
		reconcile.WithOpenOrdersInterval(s.openOrdersInterval),
		reconcile.WithTaskTimeout(s.taskTimeout),
	)
	if err != nil {
		s.disconnect()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	s.engine = engine

	s.runCtx, s.cancel = context.WithCancel(ctx)

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.eventQueue, s.engine,
		worker.WithName(workerName),
		worker.WithLogger(s.logger),
	)
	s.tasks.Go(func() { s.worker.Run(s.runCtx) })
	s.listener = s.source.AddListener(broadcast.AnyEvent, s.enqueue)

	s.dispatcher = dispatch.New(dispatch.WithLogger(s.logger))
	dispatch.RegisterLocal(s.dispatcher, dispatch.Local{
		Chain:     s.engine,
		Sessions:  s.sessions,
		Alerts:    s.alerts,
		Pending:   s.pending,
		Views:     s.views,
		Supported: s.supported,
	})
	if s.store != nil {
		dispatch.RegisterStore(s.dispatcher, s.store)
	}

	wsOpts := append([]ws.Option{
		ws.WithLogger(s.logger),
		ws.WithSupportedEvents(s.supported...),
	}, s.wsOpts...)
	s.ws = ws.NewServer(s.source, s.dispatcher, wsOpts...)

	if s.rdb != nil {
		feed := redisfeed.New(s.rdb, s,
			redisfeed.WithChannel(s.redisChannel),
			redisfeed.WithLogger(s.logger),
		)
		s.tasks.Go(func() {
			if err := feed.Run(s.runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(s.runCtx, "event feed stopped", logger.Error(err))
			}
		})
	}

	s.started = true
	s.logger.Info(ctx, "tradesync service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("methods", len(s.dispatcher.Methods())),
		logger.Bool("sql", s.store != nil),
		logger.Bool("redis", s.rdb != nil),
		logger.Bool("chain", s.chain != nil),
	)
	return nil
}

func (s *Service) connect(ctx context.Context) error {
	if s.databaseURL != "" {
		store, err := sqlstore.Open(ctx, s.databaseURL,
			sqlstore.WithLogger(s.logger),
			sqlstore.WithMaxOpenConns(s.dbMaxOpen),
		)
		if err != nil {
			return err
		}
		s.store = store
	}
	if s.ethURL != "" {
		reader, err := chain.Dial(ctx, s.ethURL, chain.WithToken(s.token), chain.WithSpender(s.spender))
		if err != nil {
			return err
		}
		s.chain = reader
	}
	if s.redisAddr != "" {
		rdb, err := redisfeed.Dial(ctx, s.redisAddr)
		if err != nil {
			return err
		}
		s.rdb = rdb
	}
	return nil
}

func (s *Service) disconnect() {
	if s.rdb != nil {
		_ = s.rdb.Close()
		s.rdb = nil
	}
	if s.chain != nil {
		s.chain.Close()
		s.chain = nil
	}
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

// enqueue runs on the publisher's goroutine and must not block.
func (s *Service) enqueue(ev model.Event) {
	if err := s.eventQueue.Enqueue(s.runCtx, ev); err != nil {
		s.dropped.Add(1)
		metrics.RecordEventDropped(string(ev.Name))
		s.logger.Warn(s.runCtx, "event dropped",
			logger.String("event", string(ev.Name)),
			logger.Error(err),
		)
	}
}

// Stop detaches from the event source, drains the queue and releases
// every connection.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tradesync service...")

	s.source.RemoveListener(s.listener)
	s.ws.Close()
	_ = s.eventQueue.Close()
	<-s.worker.Done()
	s.cancel()
	if r := s.tasks.WaitAndRecover(); r != nil {
		s.logger.Error(ctx, "background task panicked", logger.String("panic", r.String()))
	}
	s.engine.Close()
	s.disconnect()

	s.started = false
	s.logger.Info(ctx, "tradesync service stopped", logger.Int64("dropped", int64(s.dropped.Load())))
}

// WebSocketHandler returns the transport endpoint. It is nil before Start.
func (s *Service) WebSocketHandler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ws == nil {
		return nil
	}
	return s.ws
}

// Publish hands an event to every listener of the event source. A block
// tick whose hash was already published is dropped and 0 is returned; the
// removal of a reorged block forgets its hash.
func (s *Service) Publish(ev model.Event) int {
	if key, ok := dedupe.BlockKey(ev); ok {
		ctx := context.Background()
		if ev.Removed {
			s.blocks.Unrecord(ctx, key)
		} else if s.blocks.SeenAndRecord(ctx, key) {
			s.duplicates.Add(1)
			metrics.RecordEventIgnored(string(ev.Name))
			return 0
		}
	}
	return s.source.Publish(ev)
}

// Session returns a snapshot of the current session.
func (s *Service) Session() model.Session { return s.sessions.Snapshot() }

// SignIn records the account and refreshes its data in the background.
func (s *Service) SignIn(address string) {
	s.sessions.SignIn(address)
	s.refreshAccount(address)
}

// SignOut clears the account.
func (s *Service) SignOut() { s.sessions.SignOut() }

// SetView records the page and market in focus.
func (s *Service) SetView(page model.Page, marketID string) {
	s.sessions.SetView(page, marketID)
}

// PutPending records a pending action.
func (s *Service) PutPending(key model.PendingKey, status model.PendingStatus, data any) {
	s.pending.Put(key, status, data)
}

// RemovePending cancels a pending action.
func (s *Service) RemovePending(key model.PendingKey) bool {
	return s.pending.Remove(key)
}

// refreshAccount loads the signed-in account's assets, orders and
// positions. It is a no-op until Start.
func (s *Service) refreshAccount(account string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return
	}
	l, ctx, timeout := s.loader, s.runCtx, s.taskTimeout
	s.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := errors.Join(
			l.UpdateAssets(ctx, account),
			l.CheckAccountAllowance(ctx, account),
			l.LoadOpenOrders(ctx, account),
			l.LoadAllPositions(ctx, account),
		)
		if err != nil {
			metrics.RecordErrorByComponent("service", "account_refresh")
			s.logger.Warn(ctx, "account refresh failed", logger.String("account", account), logger.Error(err))
		}
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"queueSize":      s.queueSize,
		"listeners":      s.source.Len(),
		"pendingActions": s.pending.Len(),
		"alerts":         s.alerts.Len(),
		"views":          s.views.Len(),
		"dropped":        s.dropped.Load(),
		"duplicates":     s.duplicates.Load(),
		"seenBlocks":     s.blocks.Size(),
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["connections"] = s.ws.Connections()
		stats["engine"] = s.engine.Stats()
		stats["methods"] = s.dispatcher.Methods()
	}
	return stats
}
