package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hothouse/hothouse/internal/queue"
)

func newTestQueue(t *testing.T) *queue.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return queue.NewClient(rdb, "hothouse")
}

func newTestConsumer(t *testing.T, client *queue.Client, queueName string) *queue.Consumer {
	t.Helper()
	consumer, err := queue.NewConsumer(context.Background(), client, queue.ConsumerConfig{
		Queue:        queueName,
		ConsumerID:   "test-consumer",
		BlockTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return consumer
}

func TestEnqueueReadAck(t *testing.T) {
	client := newTestQueue(t)
	ctx := context.Background()

	consumer := newTestConsumer(t, client, queue.QueueDownload)
	producer := queue.NewProducer(client)

	_, err := producer.Enqueue(ctx, &queue.Task{Kind: queue.KindDownload, JobID: 42, CandidateID: 7})
	require.NoError(t, err)

	deliveries, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	task := deliveries[0].Task
	assert.Equal(t, queue.KindDownload, task.Kind)
	assert.Equal(t, int64(42), task.JobID)
	assert.Equal(t, int64(7), task.CandidateID)

	require.NoError(t, consumer.Ack(ctx, deliveries[0]))

	pending, err := consumer.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestUnackedDeliveryStaysPending(t *testing.T) {
	client := newTestQueue(t)
	ctx := context.Background()

	consumer := newTestConsumer(t, client, queue.QueueRate)
	producer := queue.NewProducer(client)

	_, err := producer.Enqueue(ctx, &queue.Task{Kind: queue.KindRateJob, JobID: 42})
	require.NoError(t, err)

	deliveries, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	// Handler failure: no ack. Delivery must remain pending for redelivery.
	pending, err := consumer.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestEnqueueRejectsInvalidTask(t *testing.T) {
	client := newTestQueue(t)
	producer := queue.NewProducer(client)

	_, err := producer.Enqueue(context.Background(), &queue.Task{Kind: queue.KindRateCandidate, JobID: 42})
	assert.ErrorIs(t, err, queue.ErrInvalidTask)
}

func TestReadReturnsEmptyWhenIdle(t *testing.T) {
	client := newTestQueue(t)
	consumer := newTestConsumer(t, client, queue.QueueDownload)

	deliveries, err := consumer.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}

func TestQueueLen(t *testing.T) {
	client := newTestQueue(t)
	ctx := context.Background()
	producer := queue.NewProducer(client)

	for i := int64(1); i <= 3; i++ {
		_, err := producer.Enqueue(ctx, &queue.Task{Kind: queue.KindRateCandidate, JobID: 42, CandidateID: i})
		require.NoError(t, err)
	}

	depth, err := client.Len(ctx, queue.QueueRate)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)
}
