package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// maxAttempts is how often an event is handled before it is dead-lettered
const maxAttempts = 3

// MessageHandler handles one decoded event
type MessageHandler func(ctx context.Context, event *Event) error

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

// Consumer dispatches events from one queue to handlers keyed by event type.
// Events without a handler are acked and dropped.
type Consumer struct {
	rmq      *RabbitMQ
	queue    string
	handlers map[string]MessageHandler
	logger   *logger.Logger

	mu       sync.Mutex
	failures map[string]int
}

// NewConsumer declares queue together with its dead letter queue
func NewConsumer(rmq *RabbitMQ, queue string, log *logger.Logger) (*Consumer, error) {
	if err := rmq.DeclareDeadLetterQueue(queue); err != nil {
		return nil, err
	}
	if _, err := rmq.DeclareQueue(queue); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return newConsumer(rmq, queue, log), nil
}

func newConsumer(rmq *RabbitMQ, queue string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{
		rmq:      rmq,
		queue:    queue,
		handlers: make(map[string]MessageHandler),
		logger:   log.WithComponent("consumer"),
		failures: make(map[string]int),
	}
}

// Subscribe binds the queue to exchange for routing keys matching pattern
func (c *Consumer) Subscribe(exchange, pattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := c.rmq.BindQueue(c.queue, exchange, pattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queue).
		Str("exchange", exchange).
		Str("routing_key", pattern).
		Msg("subscribed to exchange")
	return nil
}

// RegisterHandler sets the handler for eventType
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start consumes on the current channel until ctx ends or the channel
// closes. After a reconnect it has to be called again.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queue).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queue).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queue).Msg("message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var err error
	switch c.dispatch(ctx, msg) {
	case outcomeAck:
		err = msg.Ack(false)
	case outcomeRetry:
		err = msg.Nack(false, true)
	case outcomeDeadLetter:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("failed to settle message")
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) outcome {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue).Msg("malformed event, dead-lettering")
		return outcomeDeadLetter
	}

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("no handler for event type")
		return outcomeAck
	}

	log := c.logger.With().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Logger()

	if err := handler(WithCorrelationID(ctx, event.CorrelationID), &event); err != nil {
		attempts := c.recordFailure(event.ID, deadLetterCount(msg))
		if attempts >= maxAttempts {
			c.forget(event.ID)
			log.Warn().Err(err).Int("attempts", attempts).Msg("event failed too often, dead-lettering")
			return outcomeDeadLetter
		}
		log.Error().Err(err).Int("attempts", attempts).Msg("failed to process event, requeueing")
		return outcomeRetry
	}

	c.forget(event.ID)
	return outcomeAck
}

// recordFailure counts a failed attempt at event id. A message that was
// already dead-lettered and shovelled back starts from its x-death count.
func (c *Consumer) recordFailure(id string, previous int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.failures[id]
	if previous > n {
		n = previous
	}
	n++
	c.failures[id] = n
	return n
}

func (c *Consumer) forget(id string) {
	c.mu.Lock()
	delete(c.failures, id)
	c.mu.Unlock()
}

// deadLetterCount reads the broker's x-death count for the message
func deadLetterCount(msg amqp.Delivery) int {
	deaths, ok := msg.Headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	total := 0
	for _, death := range deaths {
		if d, ok := death.(amqp.Table); ok {
			if count, ok := d["count"].(int64); ok {
				total += int(count)
			}
		}
	}
	return total
}
