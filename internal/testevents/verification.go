package testevents

import (
	"context"
	"fmt"

	"github.com/okian/tradesync/pkg/logger"
)

// verifyResults compares engine counters before and after the run. Each
// accepted block tick yields one handled tick plus one handled group per
// distinct log name, so the handled delta must at least cover the ticks.
func verifyResults(ctx context.Context, before, after ServiceStats, stats *Stats) error {
	stats.EngineHandled = after.Engine.Handled - before.Engine.Handled
	stats.EngineFailed = after.Engine.Failed - before.Engine.Failed

	if dropped := after.Dropped - before.Dropped; dropped > 0 {
		logger.Get().Warn(ctx, "service dropped events", logger.Int64("dropped", int64(dropped)))
	}
	if stats.EngineHandled < uint64(stats.EventsSuccessful) {
		return fmt.Errorf("engine handled %d events, expected at least %d", stats.EngineHandled, stats.EventsSuccessful)
	}

	logger.Get().Info(ctx, "result verification completed",
		logger.Int64("handled", int64(stats.EngineHandled)),
		logger.Int64("failed", int64(stats.EngineFailed)))
	return nil
}
