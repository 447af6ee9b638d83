package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	app "github.com/okian/tradesync/internal/app"
	"github.com/okian/tradesync/internal/config"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("TRADESYNC_ADDR", ":8080")
			_ = os.Setenv("TRADESYNC_QUEUE_SIZE", "1000")
			_ = os.Setenv("TRADESYNC_SUPPORTED_EVENTS", "MarketCreated,OrderCreated")
			defer func() {
				_ = os.Unsetenv("TRADESYNC_ADDR")
				_ = os.Unsetenv("TRADESYNC_QUEUE_SIZE")
				_ = os.Unsetenv("TRADESYNC_SUPPORTED_EVENTS")
			}()

			convey.Convey("Then configuration maps onto the service", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")

				svc := newService(cfg, logger.Nop())
				convey.So(svc.GetStats()["queueSize"], convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then a metrics manager should be creatable on its own registry", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, cfg, svc, logger.Nop())

		convey.Convey("Then docs, API and WebSocket routes are mounted", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats", "/session"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}

			// A plain GET is not an upgrade request.
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.WSPath, http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})

	convey.Convey("Given a service that is not started", t, func() {
		cfg := config.New()
		mux := newMux(context.Background(), cfg, app.New(), logger.Nop())

		convey.Convey("Then the WebSocket route is absent", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, cfg.WSPath, http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then the system updater returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the service updater returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then single updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(app.New()) }, convey.ShouldNotPanic)
		})
	})
}
