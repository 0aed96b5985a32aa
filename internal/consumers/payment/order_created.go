package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const (
	queueName       = "payment.orders"
	deadLetterQueue = "payment.dlq"
)

func Queue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            queueName,
		DeadLetterQueue: deadLetterQueue,
		RoutingKeys:     []string{events.OrderCreatedKey},
	}
}

type paymentRepository interface {
	CreateProcessed(ctx context.Context, payment *models.Payment, eventType string) error
}

type ledger interface {
	Processed(ctx context.Context, eventID string) (bool, error)
}

type busPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// OrderCreatedHandler charges an order exactly once and announces the
// outcome. Retry exhaustion publishes the compensating payment.failed so
// the order service can roll the saga to a terminal state.
type OrderCreatedHandler struct {
	log    logger.Logger
	repo   paymentRepository
	ledger ledger
	bus    busPublisher
}

func NewOrderCreatedHandler(log logger.Logger, repo paymentRepository, ledger ledger, bus busPublisher) *OrderCreatedHandler {
	return &OrderCreatedHandler{
		log:    log,
		repo:   repo,
		ledger: ledger,
		bus:    bus,
	}
}

func (h *OrderCreatedHandler) Handlers() map[events.Type]consumer.HandleFunc {
	return map[events.Type]consumer.HandleFunc{
		events.OrderCreated: h.handleOrderCreated,
	}
}

func (h *OrderCreatedHandler) handleOrderCreated(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.payment.handleOrderCreated"

	var payload events.OrderCreatedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		return fmt.Errorf("%w: parse order.created: %s", consumer.ErrUnprocessable, err.Error())
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = env.MessageID
	}
	if eventID == "" {
		return fmt.Errorf("%w: missing event id", consumer.ErrUnprocessable)
	}

	processed, err := h.ledger.Processed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if processed {
		h.log.InfoContext(ctx, op,
			logger.String("event_id", eventID),
			logger.String("verdict", "duplicate, skipping"),
		)
		return nil
	}

	orderUUID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return fmt.Errorf("%w: bad order id %q", consumer.ErrUnprocessable, payload.OrderID)
	}

	payment := &models.Payment{
		PaymentUUID: uuid.New(),
		OrderUUID:   orderUUID,
		EventID:     eventID,
		Amount:      payload.TotalAmount,
		Status:      models.PaymentStatusCompleted,
	}

	if err = h.repo.CreateProcessed(ctx, payment, events.OrderCreatedKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	completed, err := json.Marshal(events.PaymentCompletedPayload{
		EventID:   eventID,
		OrderID:   payload.OrderID,
		PaymentID: payment.PaymentUUID.String(),
		Status:    string(models.PaymentStatusCompleted),
		Amount:    payload.TotalAmount,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal payment.completed: %w", op, err)
	}

	if err = h.bus.Publish(ctx, events.PaymentCompletedKey, eventID, completed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
		logger.String("payment_uuid", payment.PaymentUUID.String()),
	)

	return nil
}

// OnExhausted publishes payment.failed before the poisoned order.created
// message is shed to the DLQ.
func (h *OrderCreatedHandler) OnExhausted(ctx context.Context, env consumer.Envelope) {
	const op = "consumers.payment.OnExhausted"

	var payload events.OrderCreatedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		h.log.Error(op, logger.String("parse error", err.Error()))
		return
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = env.MessageID
	}
	if eventID == "" || payload.OrderID == "" {
		return
	}

	failed, err := json.Marshal(events.PaymentFailedPayload{
		EventID: eventID,
		OrderID: payload.OrderID,
		Reason:  "max_retries_exceeded",
	})
	if err != nil {
		h.log.Error(op, logger.String("marshal error", err.Error()))
		return
	}

	if err = h.bus.Publish(ctx, events.PaymentFailedKey, "failed-"+eventID, failed); err != nil {
		h.log.Error(op, logger.String("publish error", err.Error()))
		return
	}

	h.log.Warn(op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
		logger.String("published", events.PaymentFailedKey),
	)
}
