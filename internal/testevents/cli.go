package testevents

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/tradesync/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to a rotated file. If logFile is empty, a
// timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	if err := logger.Init(logger.WithFile(logFile)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	os.Stdout.WriteString("logging to " + logFile + "\n")
	return nil
}

// ShowHelp prints usage information for the event generator.
func ShowHelp() {
	os.Stdout.WriteString(`tradesync Event Generator
=========================

Publishes synthetic block ticks with embedded order, market and token logs
to a running tradesync service and checks that the engine handled them.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -redis string
        Publish on the redis feed at this address instead of POST /events
  -channel string
        Redis channel (default "tradesync:events")
  -blocks int
        Number of block ticks to generate (default 100)
  -logs int
        Logs embedded in each block tick (default 6)
  -markets int
        Number of distinct markets (default 5)
  -account string
        Account to sign in as (default: random address)
  -workers int
        Number of concurrent publishers; order is kept only with 1 (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for run output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/test-events -blocks 1000 -logs 10
  go run ./cmd/test-events -redis localhost:6379 -blocks 500
`)
}
