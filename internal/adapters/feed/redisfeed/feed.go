// Package redisfeed feeds decoded chain events published on a Redis
// pub/sub channel into the Event Source.
package redisfeed

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the channel used when none is configured.
const DefaultChannel = "tradesync:events"

const metricsSource = "redis"

// numbers stay json.Number so block numbers and amounts keep full precision.
var codec = sonic.Config{UseNumber: true}.Froze()

// Publisher receives decoded events.
type Publisher interface {
	Publish(ev model.Event) int
}

// Feed subscribes to one channel and publishes every decoded message.
type Feed struct {
	rdb     redis.UniversalClient
	channel string
	pub     Publisher
	log     logger.Logger
}

// Option configures a Feed.
type Option func(*Feed)

// WithChannel sets the pub/sub channel.
func WithChannel(ch string) Option {
	return func(f *Feed) {
		if ch != "" {
			f.channel = ch
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a feed over an existing client.
func New(rdb redis.UniversalClient, pub Publisher, opts ...Option) *Feed {
	f := &Feed{rdb: rdb, channel: DefaultChannel, pub: pub, log: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}
	return rdb, nil
}

// Channel returns the subscribed channel.
func (f *Feed) Channel() string { return f.channel }

// Run consumes the channel until ctx is canceled.
func (f *Feed) Run(ctx context.Context) error {
	pubsub := f.rdb.Subscribe(ctx, f.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	f.log.Info(ctx, "subscribed to event feed", logger.String("channel", f.channel))

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			f.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (f *Feed) handle(ctx context.Context, payload []byte) {
	ev, err := Decode(payload)
	if err != nil {
		metrics.RecordFeedMessage(metricsSource, "invalid")
		f.log.Warn(ctx, "dropping feed message", logger.Error(err))
		return
	}
	if !model.Known(ev.Name) {
		f.log.Debug(ctx, "feed event outside taxonomy", logger.String("event", string(ev.Name)))
	}
	metrics.RecordFeedMessage(metricsSource, "ok")
	f.pub.Publish(ev)
}

// Decode parses one message payload.
func Decode(payload []byte) (model.Event, error) {
	var ev model.Event
	if err := codec.Unmarshal(payload, &ev); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ev.Name == "" {
		return model.Event{}, fmt.Errorf("%w: missing name", ErrDecode)
	}
	return ev, nil
}

// Encode renders ev as a message payload.
func Encode(ev model.Event) ([]byte, error) {
	return codec.Marshal(ev)
}

// Publish sends ev on channel.
func Publish(ctx context.Context, rdb redis.UniversalClient, channel string, ev model.Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, channel, data).Err()
}
