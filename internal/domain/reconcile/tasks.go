package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// taskGroup runs secondary loads off the event loop. A failing or
// panicking task is logged and counted; it never reaches the loop.
type taskGroup struct {
	wg      conc.WaitGroup
	base    context.Context
	timeout time.Duration
	log     logger.Logger

	started atomic.Uint64
	failed  atomic.Uint64
}

func (t *taskGroup) Go(name string, fn func(ctx context.Context) error) {
	t.started.Add(1)
	metrics.RecordTaskStarted(name)
	t.wg.Go(func() {
		ctx, cancel := context.WithTimeout(t.base, t.timeout)
		defer cancel()

		start := time.Now()
		var err error
		if r := panics.Try(func() { err = fn(ctx) }); r != nil {
			err = r.AsError()
		}
		metrics.RecordTaskLatency(name, float64(time.Since(start).Nanoseconds())/1e6)
		if err != nil {
			t.failed.Add(1)
			metrics.RecordTaskFailure(name)
			t.log.Error(ctx, "task failed",
				logger.String("task", name),
				logger.Error(fmt.Errorf("%w: %s: %w", ErrTask, name, err)),
			)
		}
	})
}

// Wait blocks until every started task returns.
func (t *taskGroup) Wait() { t.wg.Wait() }
