package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const (
	EventsExchange     = "ecommerce.events"
	DeadLetterExchange = "ecommerce.dlx"

	RetryCountHeader = "x-retry-count"

	ContentTypeJSON = "application/json"

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Client owns one connection and one channel for its lifetime. Each
// consumer instance acquires its own Client on start and releases it on
// shutdown; clients are never shared as process-wide singletons.
type Client struct {
	log logger.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewClient(url string, log logger.Logger) (*Client, error) {
	const op = "rabbitmq.NewClient"

	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(connectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: open channel: %w", op, err)
	}

	return &Client{
		log:  log,
		conn: conn,
		ch:   ch,
	}, nil
}

// DeclareExchanges asserts the business and dead-letter topic exchanges.
func (c *Client) DeclareExchanges() error {
	const op = "rabbitmq.Client.DeclareExchanges"

	for _, exchange := range []string{EventsExchange, DeadLetterExchange} {
		if err := c.ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeTopic,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("%s: declare %s: %w", op, exchange, err)
		}
	}

	return nil
}

// QueueSpec describes one consumer-owned durable queue: the routing keys it
// handles and the dead-letter queue exhausted messages are shed to.
type QueueSpec struct {
	Name            string
	DeadLetterQueue string
	RoutingKeys     []string
}

// DeclareQueue asserts the queue, its dead-letter queue and the bindings,
// and bounds the channel to one unacknowledged message in flight.
func (c *Client) DeclareQueue(spec QueueSpec) error {
	const op = "rabbitmq.Client.DeclareQueue"

	if err := c.DeclareExchanges(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.ch.QueueDeclare(spec.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: declare dlq %s: %w", op, spec.DeadLetterQueue, err)
	}

	if err := c.ch.QueueBind(spec.DeadLetterQueue, spec.DeadLetterQueue, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("%s: bind dlq %s: %w", op, spec.DeadLetterQueue, err)
	}

	if _, err := c.ch.QueueDeclare(spec.Name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": spec.DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("%s: declare queue %s: %w", op, spec.Name, err)
	}

	for _, key := range spec.RoutingKeys {
		if err := c.ch.QueueBind(spec.Name, key, EventsExchange, false, nil); err != nil {
			return fmt.Errorf("%s: bind %s to %s: %w", op, spec.Name, key, err)
		}
	}

	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%s: set prefetch: %w", op, err)
	}

	return nil
}

// Publish sends a persistent message to the events exchange. The message id
// equals the event id so the broker can be traced without parsing payloads.
func (c *Client) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	const op = "rabbitmq.Client.Publish"

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := c.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Body:         body,
	}); err != nil {
		c.log.Error(op, logger.String("routing_key", routingKey), logger.String("error", err.Error()))
		return fmt.Errorf("%s: publish %s: %w", op, routingKey, err)
	}

	return nil
}

// PublishToQueue republishes a message directly to a queue with the retry
// counter set, bypassing the exchange. Used by the controlled requeue path.
func (c *Client) PublishToQueue(ctx context.Context, queue, messageID, contentType string, body []byte, retryCount int) error {
	const op = "rabbitmq.Client.PublishToQueue"

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if contentType == "" {
		contentType = ContentTypeJSON
	}

	if err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      amqp.Table{RetryCountHeader: int32(retryCount)},
		Body:         body,
	}); err != nil {
		c.log.Error(op, logger.String("queue", queue), logger.String("error", err.Error()))
		return fmt.Errorf("%s: publish to %s: %w", op, queue, err)
	}

	return nil
}

func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	const op = "rabbitmq.Client.Consume"

	deliveries, err := c.ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: consume %s: %w", op, queue, err)
	}

	return deliveries, nil
}

func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}

	return c.conn.Close()
}
