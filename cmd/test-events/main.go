package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/tradesync/internal/adapters/feed/redisfeed"
	"github.com/okian/tradesync/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumBlocks    = 100
	defaultLogsPerBlock = 6
	defaultMarkets      = 5
	defaultWorkers      = 1
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		redisAddr  = flag.String("redis", "", "Publish on the redis feed at this address instead of POST /events")
		channel    = flag.String("channel", redisfeed.DefaultChannel, "Redis channel")
		numBlocks  = flag.Int("blocks", defaultNumBlocks, "Number of block ticks to generate")
		logs       = flag.Int("logs", defaultLogsPerBlock, "Logs embedded in each block tick")
		markets    = flag.Int("markets", defaultMarkets, "Number of distinct markets")
		account    = flag.String("account", "", "Account to sign in as (default: random address)")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent publishers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated events (default: generated_events_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &testevents.Config{
		BaseURL:      *baseURL,
		RedisAddr:    *redisAddr,
		Channel:      *channel,
		NumBlocks:    *numBlocks,
		LogsPerBlock: *logs,
		Markets:      *markets,
		Account:      *account,
		Workers:      *workers,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		return
	}
}
