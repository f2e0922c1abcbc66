// Package queue is a durable multi-consumer work queue on Redis Streams.
// Named queues map to streams, consumer groups give at-least-once
// delivery: a message is acknowledged only after its handler succeeds, and
// stale pending entries are reclaimed by the next reader.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "hothouse"

// Client wraps a Redis client with stream-name bookkeeping.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewClient creates a queue client on top of an existing Redis connection.
func NewClient(rdb redis.UniversalClient, prefix string) *Client {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// StreamName returns the stream key for a named queue.
func (c *Client) StreamName(queue string) string {
	return fmt.Sprintf("%s:queue:%s", c.prefix, queue)
}

// CreateConsumerGroup creates the consumer group for a queue if it does not
// exist yet.
func (c *Client) CreateConsumerGroup(ctx context.Context, queue, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.StreamName(queue), group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group for %s: %w", queue, err)
	}
	return nil
}

// Len returns the current depth of a queue.
func (c *Client) Len(ctx context.Context, queue string) (int64, error) {
	return c.rdb.XLen(ctx, c.StreamName(queue)).Result()
}

// Ping checks Redis reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
