package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/tradesync/internal/adapters/mq/worker"
	model "github.com/okian/tradesync/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	eventChan chan model.Event
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan model.Event, 128)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan model.Event {
	return mq.eventChan
}

func (mq *mockQueue) Close() error {
	close(mq.eventChan)
	return nil
}

func (mq *mockQueue) addEvent(ev model.Event) { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	mq.eventChan <- ev
}

type mockHandler struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]error
}

func newMockHandler() *mockHandler {
	return &mockHandler{failOn: make(map[string]error)}
}

func (h *mockHandler) Handle(ctx context.Context, ev model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, ev.Market())
	return h.failOn[ev.Market()]
}

func (h *mockHandler) markets() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func marketEvent(id string) model.Event {
	return model.Event{Name: model.MarketFinalized, Fields: map[string]any{model.FieldMarket: id}}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		queue := newMockQueue()
		handler := newMockHandler()
		w := worker.NewInMemoryWorker(queue, handler, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go w.Run(ctx)

		convey.Convey("When events arrive", func() {
			for i := 0; i < 20; i++ {
				queue.addEvent(marketEvent(fmt.Sprintf("m%d", i)))
			}

			convey.Convey("Then they are handled in arrival order", func() {
				convey.So(waitFor(func() bool { return len(handler.markets()) == 20 }), convey.ShouldBeTrue)
				got := handler.markets()
				for i, m := range got {
					convey.So(m, convey.ShouldEqual, fmt.Sprintf("m%d", i))
				}
			})
		})

		convey.Convey("When the handler fails", func() {
			handler.failOn["bad"] = errors.New("boom")
			queue.addEvent(marketEvent("bad"))
			queue.addEvent(marketEvent("good"))

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return len(handler.markets()) == 2 }), convey.ShouldBeTrue)
				convey.So(handler.markets()[1], convey.ShouldEqual, "good")
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops and a second call is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerStopsOnQueueClose(t *testing.T) {
	convey.Convey("Given a worker whose queue closes", t, func() {
		queue := newMockQueue()
		w := worker.NewInMemoryWorker(queue, newMockHandler())
		go w.Run(context.Background())

		_ = queue.Close()

		convey.So(waitFor(func() bool {
			select {
			case <-w.Done():
				return true
			default:
				return false
			}
		}), convey.ShouldBeTrue)
	})
}

func TestWorkerStopsOnCancel(t *testing.T) {
	convey.Convey("Given a worker whose context is canceled", t, func() {
		w := worker.NewInMemoryWorker(newMockQueue(), newMockHandler())
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		cancel()

		select {
		case <-w.Done():
		case <-time.After(time.Second):
			t.Fatal("worker did not stop")
		}
	})
}
