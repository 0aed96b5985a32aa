package consumer

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

// MaxRetries is the controlled-requeue ceiling shared by every consumer.
// Exhausting it sheds the message to the queue's dead-letter queue.
const MaxRetries = 3

// ErrUnprocessable marks a structurally broken message (missing event id,
// unparseable payload). Such messages are dead-lettered immediately since
// redelivery cannot fix them.
var ErrUnprocessable = errors.New("unprocessable message")

// HandleFunc applies the business effect for one event. Returning nil acks
// the delivery; wrapping ErrUnprocessable dead-letters it; any other error
// goes through the bounded-retry escalation.
type HandleFunc func(ctx context.Context, env Envelope) error

type busClient interface {
	DeclareQueue(spec rabbitmq.QueueSpec) error
	Consume(queue string) (<-chan amqp.Delivery, error)
	PublishToQueue(ctx context.Context, queue, messageID, contentType string, body []byte, retryCount int) error
}

// Consumer drives one queue with at most one message in flight. Handlers
// are registered per event type; routing keys outside the table are
// dead-lettered as unprocessable.
type Consumer struct {
	log    logger.Logger
	client busClient

	queue    rabbitmq.QueueSpec
	handlers map[events.Type]HandleFunc

	// onExhausted runs once before a retry-exhausted message is shed to the
	// DLQ, giving the owner a chance to publish a compensating event.
	onExhausted func(ctx context.Context, env Envelope)
}

type Option func(*Consumer)

func WithExhaustedHook(hook func(ctx context.Context, env Envelope)) Option {
	return func(c *Consumer) {
		c.onExhausted = hook
	}
}

func New(
	log logger.Logger,
	client busClient,
	queue rabbitmq.QueueSpec,
	handlers map[events.Type]HandleFunc,
	opts ...Option,
) *Consumer {
	c := &Consumer{
		log:      log,
		client:   client,
		queue:    queue,
		handlers: handlers,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run declares the queue topology and processes deliveries until the
// context is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "consumer.Consumer.Run"

	if err := c.client.DeclareQueue(c.queue); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := c.client.Consume(c.queue.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info(op, logger.String("queue", c.queue.Name))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			c.process(ctx, d)
		}
	}
}

// process ends in exactly one of ack, controlled requeue, or reject to the
// DLQ; no code path leaves a delivery unacknowledged.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	const op = "consumer.Consumer.process"

	env := envelopeFromDelivery(d)

	eventType, ok := events.TypeFromRoutingKey(env.RoutingKey)
	if !ok {
		c.log.Warn(op,
			logger.String("queue", c.queue.Name),
			logger.String("routing_key", env.RoutingKey),
			logger.String("verdict", "dead-letter: unknown routing key"),
		)
		c.reject(d)
		return
	}

	handle, ok := c.handlers[eventType]
	if !ok {
		c.log.Warn(op,
			logger.String("queue", c.queue.Name),
			logger.String("routing_key", env.RoutingKey),
			logger.String("verdict", "dead-letter: no handler registered"),
		)
		c.reject(d)
		return
	}

	err := handle(ctx, env)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error(op, logger.String("ack error", ackErr.Error()))
		}
		return
	}

	if errors.Is(err, ErrUnprocessable) {
		c.log.Warn(op,
			logger.String("queue", c.queue.Name),
			logger.String("message_id", env.MessageID),
			logger.String("verdict", "dead-letter: "+err.Error()),
		)
		c.reject(d)
		return
	}

	c.escalate(ctx, d, env, err)
}

// escalate requeues with an incremented retry header while under the
// ceiling, otherwise runs the exhausted hook and rejects to the DLQ. A
// poisoned message is fatal for itself, never for the consumer.
func (c *Consumer) escalate(ctx context.Context, d amqp.Delivery, env Envelope, handleErr error) {
	const op = "consumer.Consumer.escalate"

	c.log.Warn(op,
		logger.String("queue", c.queue.Name),
		logger.String("message_id", env.MessageID),
		logger.Int("retry_count", env.RetryCount),
		logger.String("error", handleErr.Error()),
	)

	if env.RetryCount < MaxRetries {
		err := c.client.PublishToQueue(ctx, c.queue.Name, env.MessageID, env.ContentType, env.Body, env.RetryCount+1)
		if err != nil {
			// Requeue publish failed; fall back to broker redelivery so the
			// message is not lost.
			c.log.Error(op, logger.String("requeue error", err.Error()))
			if nackErr := d.Nack(false, true); nackErr != nil {
				c.log.Error(op, logger.String("nack error", nackErr.Error()))
			}
			return
		}

		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error(op, logger.String("ack error", ackErr.Error()))
		}
		return
	}

	c.log.Error(op,
		logger.String("queue", c.queue.Name),
		logger.String("message_id", env.MessageID),
		logger.String("verdict", fmt.Sprintf("dead-letter: %d retries exhausted", MaxRetries)),
	)

	if c.onExhausted != nil {
		c.onExhausted(ctx, env)
	}

	c.reject(d)
}

func (c *Consumer) reject(d amqp.Delivery) {
	const op = "consumer.Consumer.reject"

	if err := d.Nack(false, false); err != nil {
		c.log.Error(op, logger.String("nack error", err.Error()))
	}
}
