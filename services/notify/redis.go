package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/redis/go-redis/v9"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// RedisConfig holds configuration for the redis stream channel
type RedisConfig struct {
	Addr            string
	DB              int
	StreamPrefix    string
	StreamCount     int
	StreamMaxLength int
}

// RedisChannel publishes each new listing onto a redis stream for
// downstream consumers. Streams are sharded by count and trimmed to the
// configured maximum length after a run.
type RedisChannel struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
	log             *logger.Logger
}

var _ Channel = (*RedisChannel)(nil)

// NewRedisChannel creates the redis stream channel
func NewRedisChannel(cfg RedisConfig) *RedisChannel {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	return &RedisChannel{
		client:          client,
		streamPrefix:    cfg.StreamPrefix,
		streamCount:     cfg.StreamCount,
		streamMaxLength: cfg.StreamMaxLength,
		log:             logger.ForNotifier("redis"),
	}
}

// Name returns the channel name
func (c *RedisChannel) Name() string {
	return "redis"
}

// Notify publishes every listing as base64-encoded JSON, then trims the
// streams. A failure for one listing never blocks the rest.
func (c *RedisChannel) Notify(ctx context.Context, listings []fetcher.Listing) error {
	failed := 0
	for _, l := range listings {
		if err := c.publish(ctx, l); err != nil {
			c.log.Warn().
				Err(err).
				Str("url", l.URL).
				Msg("Failed to publish listing")
			failed++
		}
	}

	if err := c.trimStreams(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to trim streams")
	}

	if failed > 0 {
		return werrors.NewNotify(c.Name(), fmt.Sprintf("%d of %d publishes failed", failed, len(listings)), nil)
	}
	return nil
}

// publish XADDs one listing to a randomly sharded stream
func (c *RedisChannel) publish(ctx context.Context, l fetcher.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	// random stream name by streamCount: prefix:0 ~ prefix:N-1
	stream := c.streamPrefix + ":" + strconv.Itoa(rand.Intn(c.streamCount))

	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"listing": encoded,
		},
	}).Err()
}

// trimStreams trims all sharded streams to the configured maximum length
func (c *RedisChannel) trimStreams(ctx context.Context) error {
	pattern := c.streamPrefix + ":*"
	streams, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		if err := c.client.XTrimMaxLen(ctx, stream, int64(c.streamMaxLength)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the redis connection
func (c *RedisChannel) Close() error {
	return c.client.Close()
}
