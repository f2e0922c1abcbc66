package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	taskField       = "task"
	enqueuedAtField = "enqueued_at"

	// Streams are trimmed so a stuck consumer cannot grow them unbounded.
	maxStreamLen = 10000
)

// Producer enqueues tasks onto their queues.
type Producer struct {
	client *Client
}

// NewProducer creates a task producer.
func NewProducer(client *Client) *Producer {
	return &Producer{client: client}
}

// Enqueue validates the task and appends it to its queue's stream,
// returning the message ID.
func (p *Producer) Enqueue(ctx context.Context, task *Task) (string, error) {
	payload, err := task.encode()
	if err != nil {
		return "", err
	}

	stream := p.client.StreamName(task.Queue())
	id, err := p.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{
			taskField:       payload,
			enqueuedAtField: time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", task.Kind, err)
	}
	return id, nil
}
