package testevents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/okian/tradesync/internal/adapters/feed/redisfeed"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"
)

var errRejected = errors.New("event rejected")

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// Publisher delivers one event to the service.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

type httpPublisher struct {
	client *HTTPClient
	url    string
}

// NewHTTPPublisher posts events to baseURL/events.
func NewHTTPPublisher(baseURL string, timeout time.Duration) Publisher {
	return &httpPublisher{client: newHTTPClient(timeout), url: baseURL + "/events"}
}

func (p *httpPublisher) Publish(ctx context.Context, ev model.Event) error {
	resp, err := p.client.Post(ctx, p.url, ev)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	}
	var ack AckResponse
	if err := sonic.Unmarshal(body, &ack); err != nil || ack.Status != "accepted" {
		return fmt.Errorf("%w: %s", errRejected, body)
	}
	return nil
}

type redisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

// NewRedisPublisher publishes events on the service's redis feed channel.
func NewRedisPublisher(rdb redis.UniversalClient, channel string) Publisher {
	if channel == "" {
		channel = redisfeed.DefaultChannel
	}
	return &redisPublisher{rdb: rdb, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, ev model.Event) error {
	return redisfeed.Publish(ctx, p.rdb, p.channel, ev)
}

// submitEvents publishes events with at most config.Workers in flight.
// Arrival order is only preserved with a single worker.
func submitEvents(ctx context.Context, config *Config, pub Publisher, events []model.Event, stats *Stats) error {
	logger.Get().Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	var submitted, successful, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(maxInt(config.Workers, 1))
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			submitted.Add(1)
			if err := pub.Publish(ctx, ev); err != nil {
				failed.Add(1)
				if config.Verbose {
					logger.Get().Warn(ctx, "publish failed", logger.String("event", string(ev.Name)), logger.Error(err))
				}
				return
			}
			successful.Add(1)
		})
	}
	p.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsFailed = int(failed.Load())

	logger.Get().Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("failed", stats.EventsFailed))
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}
