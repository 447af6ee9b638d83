package testevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/okian/tradesync/internal/adapters/feed/redisfeed"
	"github.com/okian/tradesync/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete generator run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	if config.Account == "" {
		config.Account = randomAddress()
	}

	logger.Get().Info(ctx, "starting tradesync event run",
		logger.String("baseURL", config.BaseURL),
		logger.String("redisAddr", config.RedisAddr),
		logger.Int("blocks", config.NumBlocks),
		logger.Int("workers", config.Workers),
		logger.String("account", config.Account),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Sign in so the engine takes the user paths
	if err := signIn(ctx, client, config); err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	before, err := fetchStats(ctx, client, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}

	// Step 3: Generate events
	events, err := generateBlocks(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 4: Publish
	pub, closePub, err := newPublisher(ctx, config)
	if err != nil {
		return fmt.Errorf("publisher setup failed: %w", err)
	}
	defer closePub()
	if err := submitEvents(ctx, config, pub, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 5: Wait for processing and verify
	logger.Get().Info(ctx, "waiting for events to be processed")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ProcessingDelay):
	}

	after, err := fetchStats(ctx, client, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	if err := verifyResults(ctx, before, after, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save events to file
	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

func newPublisher(ctx context.Context, config *Config) (Publisher, func(), error) {
	if config.RedisAddr == "" {
		return NewHTTPPublisher(config.BaseURL, config.Timeout), func() {}, nil
	}
	rdb, err := redisfeed.Dial(ctx, config.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisPublisher(rdb, config.Channel), func() { _ = rdb.Close() }, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// The service answers with Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

func signIn(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Post(ctx, config.BaseURL+"/session", map[string]string{"address": config.Account})
	if err != nil {
		return err
	}
	_, _ = readResponseBody(resp)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	}
	return nil
}

func fetchStats(ctx context.Context, client *HTTPClient, config *Config) (ServiceStats, error) {
	var st ServiceStats
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return st, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return st, err
	}
	if resp.StatusCode != StatusOK {
		return st, fmt.Errorf("stats failed with status: %d", resp.StatusCode)
	}
	if err := sonic.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("failed to decode stats: %w", err)
	}
	return st, nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events any) error {
	filename := config.OutputFile
	if filename == "" {
		filename = "generated_events_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := sonic.ConfigStd.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("blocksGenerated", stats.BlocksGenerated),
		logger.Int("logsGenerated", stats.LogsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int64("engineHandled", int64(stats.EngineHandled)),
		logger.Int64("engineFailed", int64(stats.EngineFailed)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
