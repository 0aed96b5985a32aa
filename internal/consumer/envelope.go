package consumer

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
)

// Envelope is the immutable view of one delivery. RetryCount travels in
// message headers only; the payload is never touched between requeues.
type Envelope struct {
	Body        []byte
	MessageID   string
	ContentType string
	RoutingKey  string
	RetryCount  int
}

func envelopeFromDelivery(d amqp.Delivery) Envelope {
	return Envelope{
		Body:        d.Body,
		MessageID:   d.MessageId,
		ContentType: d.ContentType,
		RoutingKey:  d.RoutingKey,
		RetryCount:  retryCountFromHeaders(d.Headers),
	}
}

func retryCountFromHeaders(headers amqp.Table) int {
	raw, ok := headers[rabbitmq.RetryCountHeader]
	if !ok {
		return 0
	}

	switch v := raw.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
