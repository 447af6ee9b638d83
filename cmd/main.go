package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/tradesync/internal/adapters/http/api"
	"github.com/okian/tradesync/internal/adapters/http/swagger"
	"github.com/okian/tradesync/internal/adapters/ws"
	app "github.com/okian/tradesync/internal/app"
	"github.com/okian/tradesync/internal/config"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
)

// HTTP server timeout constants. WriteTimeout stays zero: WebSocket
// connections share the server and are long-lived.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithFile(cfg.LogFile)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("ws_path", cfg.WSPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// newService maps configuration onto service options.
func newService(cfg *config.Config, l logger.Logger) *app.Service {
	supported := make([]model.EventName, 0, len(cfg.SupportedEvents))
	for _, name := range cfg.SupportedEvents {
		supported = append(supported, model.EventName(name))
	}
	return app.New(
		app.WithLogger(l),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithSupportedEvents(supported...),
		app.WithUniverse(cfg.UniverseID),
		app.WithThrottle(cfg.OrderBookInterval(), cfg.OpenOrdersInterval()),
		app.WithTaskTimeout(cfg.TaskTimeout()),
		app.WithCacheTTL(cfg.AlertTTL(), cfg.ViewTTL()),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDatabase(cfg.DatabaseURL, cfg.DBMaxOpenConns),
		app.WithRedisFeed(cfg.RedisAddr, cfg.RedisChannel),
		app.WithChain(cfg.EthRPCURL, cfg.TradingToken, cfg.TradingSpender),
		app.WithWebSocketOptions(
			ws.WithSendBuffer(cfg.WSSendBuffer),
			ws.WithReadLimit(cfg.WSReadLimit),
			ws.WithPingInterval(cfg.PingInterval()),
		),
	)
}

// newMux registers the docs, the business API and, once the service is
// started, the WebSocket endpoint.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(l.Named("http"))).Register(ctx, mux)
	if h := svc.WebSocketHandler(); h != nil {
		mux.Handle(cfg.WSPath, h)
	}
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that are only observable by polling.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if pending, ok := stats["pendingActions"].(int); ok {
		metrics.UpdatePendingActions(pending)
	}
}
