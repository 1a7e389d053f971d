package messaging

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &recordingChannel{}
	p := &Publisher{channel: ch, exchange: ExchangeInventoryEvents, source: "inventory-service", logger: logger.Nop()}

	ctx := WithCorrelationID(context.Background(), "req-1")
	err := p.Publish(ctx, EventItemDeleted, ItemDeletedEvent{OwnerID: "o1", ItemID: "i1", SKU: "FLR-01"})
	require.NoError(t, err)

	assert.Equal(t, ExchangeInventoryEvents, ch.exchange)
	assert.Equal(t, EventItemDeleted, ch.key)
	assert.Equal(t, "req-1", ch.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var event Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, EventItemDeleted, event.Type)
	assert.Equal(t, "inventory-service", event.Source)
	assert.Equal(t, ch.msg.MessageId, event.ID)

	var data ItemDeletedEvent
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, "FLR-01", data.SKU)
}

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeue  bool
	rejected bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.rejected, a.requeue = true, requeue
	return nil
}

func delivery(t *testing.T, ack *fakeAcknowledger, eventType string, headers amqp.Table) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "user-service", "corr-1", UserDeletedEvent{UserID: "u1", OwnerID: "o1"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Headers: headers}
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks handled events", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		var got string
		c.RegisterHandler(EventUserDeleted, func(ctx context.Context, e *Event) error {
			got = CorrelationID(ctx)
			return nil
		})

		ack := &fakeAcknowledger{}
		c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, nil))

		assert.True(t, ack.acked)
		assert.Equal(t, "corr-1", got)
	})

	t.Run("acks events without handler", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		ack := &fakeAcknowledger{}
		c.handleMessage(context.Background(), delivery(t, ack, "user.role.changed", nil))
		assert.True(t, ack.acked)
	})

	t.Run("requeues failures", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventUserDeleted, func(context.Context, *Event) error { return assert.AnError })

		ack := &fakeAcknowledger{}
		c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, nil))
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("dead-letters after max retries", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventUserDeleted, func(context.Context, *Event) error { return assert.AnError })

		headers := amqp.Table{"x-death": []interface{}{amqp.Table{"count": int64(3)}}}
		ack := &fakeAcknowledger{}
		c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, headers))
		assert.True(t, ack.rejected)
		assert.False(t, ack.requeue)
	})

	t.Run("dead-letters an event failing on every redelivery", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		calls := 0
		c.RegisterHandler(EventUserDeleted, func(context.Context, *Event) error { calls++; return assert.AnError })

		msg := delivery(t, &fakeAcknowledger{}, EventUserDeleted, nil)
		for i := 1; i < maxAttempts; i++ {
			ack := &fakeAcknowledger{}
			msg.Acknowledger = ack
			c.handleMessage(context.Background(), msg)
			assert.True(t, ack.nacked, "attempt %d is requeued", i)
		}

		ack := &fakeAcknowledger{}
		msg.Acknowledger = ack
		c.handleMessage(context.Background(), msg)
		assert.True(t, ack.rejected)
		assert.False(t, ack.requeue)
		assert.Equal(t, maxAttempts, calls)
		assert.Empty(t, c.failures)
	})

	t.Run("success clears earlier failures", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		fail := true
		c.RegisterHandler(EventUserDeleted, func(context.Context, *Event) error {
			if fail {
				return assert.AnError
			}
			return nil
		})

		msg := delivery(t, &fakeAcknowledger{}, EventUserDeleted, nil)
		c.handleMessage(context.Background(), msg)
		fail = false
		ack := &fakeAcknowledger{}
		msg.Acknowledger = ack
		c.handleMessage(context.Background(), msg)
		assert.True(t, ack.acked)
		assert.Empty(t, c.failures)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		ack := &fakeAcknowledger{}
		c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.True(t, ack.rejected)
	})
}

func TestDeadLetterQueueName(t *testing.T) {
	assert.Equal(t, "dlq.inventory-service.user-events", DeadLetterQueueName("inventory-service.user-events"))
}
