package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultGroup        = "workers"
	defaultBlockTimeout = 5 * time.Second
	defaultBatchSize    = 10
	defaultClaimMinIdle = 5 * time.Minute
	maxPendingCheck     = 100
)

// Delivery is one task read from a queue, paired with the message identity
// needed to acknowledge it.
type Delivery struct {
	MessageID  string
	Task       *Task
	EnqueuedAt time.Time
}

// ConsumerConfig configures a queue consumer.
type ConsumerConfig struct {
	Queue        string
	Group        string
	ConsumerID   string
	BlockTimeout time.Duration
	BatchSize    int64
	ClaimMinIdle time.Duration
}

// Consumer reads tasks from one named queue as part of a consumer group.
type Consumer struct {
	client       *Client
	queue        string
	group        string
	consumerID   string
	blockTimeout time.Duration
	batchSize    int64
	claimMinIdle time.Duration
}

// NewConsumer creates a consumer and its consumer group.
func NewConsumer(ctx context.Context, client *Client, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.Queue == "" {
		return nil, errors.New("queue name is required")
	}
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}
	if cfg.Group == "" {
		cfg.Group = defaultGroup
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = defaultBlockTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = defaultClaimMinIdle
	}

	if err := client.CreateConsumerGroup(ctx, cfg.Queue, cfg.Group); err != nil {
		return nil, err
	}

	return &Consumer{
		client:       client,
		queue:        cfg.Queue,
		group:        cfg.Group,
		consumerID:   cfg.ConsumerID,
		blockTimeout: cfg.BlockTimeout,
		batchSize:    cfg.BatchSize,
		claimMinIdle: cfg.ClaimMinIdle,
	}, nil
}

// Read returns the next batch of deliveries. Stale pending entries from
// dead consumers are reclaimed before new messages are read. Returns an
// empty slice when the block timeout elapses without messages.
func (c *Consumer) Read(ctx context.Context) ([]*Delivery, error) {
	if reclaimed := c.reclaimPending(ctx); len(reclaimed) > 0 {
		return reclaimed, nil
	}

	stream := c.client.StreamName(c.queue)
	streams, err := c.client.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumerID,
		Streams:  []string{stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue %s: %w", c.queue, err)
	}

	var deliveries []*Delivery
	for _, s := range streams {
		for _, msg := range s.Messages {
			d, parseErr := c.parseMessage(msg)
			if parseErr != nil {
				// A payload that cannot be decoded will never succeed;
				// acknowledge it so it does not wedge the group.
				_ = c.client.rdb.XAck(ctx, stream, c.group, msg.ID).Err()
				continue
			}
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, nil
}

// Ack acknowledges successful processing of a delivery.
func (c *Consumer) Ack(ctx context.Context, d *Delivery) error {
	if d == nil {
		return errors.New("delivery cannot be nil")
	}
	stream := c.client.StreamName(c.queue)
	if err := c.client.rdb.XAck(ctx, stream, c.group, d.MessageID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", d.MessageID, err)
	}
	return nil
}

// PendingCount returns the number of delivered-but-unacknowledged messages.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	pending, err := c.client.rdb.XPending(ctx, c.client.StreamName(c.queue), c.group).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("pending count for %s: %w", c.queue, err)
	}
	return pending.Count, nil
}

// reclaimPending claims messages whose consumer stopped acknowledging.
func (c *Consumer) reclaimPending(ctx context.Context) []*Delivery {
	stream := c.client.StreamName(c.queue)

	pending, err := c.client.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  maxPendingCheck,
	}).Result()
	if err != nil {
		return nil
	}

	var ids []string
	for _, entry := range pending {
		if entry.Idle >= c.claimMinIdle {
			ids = append(ids, entry.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	claimed, err := c.client.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    c.group,
		Consumer: c.consumerID,
		MinIdle:  c.claimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil
	}

	var deliveries []*Delivery
	for _, msg := range claimed {
		d, parseErr := c.parseMessage(msg)
		if parseErr != nil {
			_ = c.client.rdb.XAck(ctx, stream, c.group, msg.ID).Err()
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries
}

func (c *Consumer) parseMessage(msg redis.XMessage) (*Delivery, error) {
	payload, ok := msg.Values[taskField].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing task field", ErrInvalidTask)
	}

	task, err := decodeTask(payload)
	if err != nil {
		return nil, err
	}

	d := &Delivery{MessageID: msg.ID, Task: task}
	if raw, hasTS := msg.Values[enqueuedAtField].(string); hasTS {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			d.EnqueuedAt = ts
		}
	}
	return d, nil
}

// Queue returns the queue name this consumer reads.
func (c *Consumer) Queue() string { return c.queue }

// Group returns the consumer group name.
func (c *Consumer) Group() string { return c.group }
