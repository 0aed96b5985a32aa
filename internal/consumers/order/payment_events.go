package order

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
	paymentEventsQueueName       = "order.payment-events"
	paymentEventsDeadLetterQueue = "order.payment-events.dlq"
)

func PaymentEventsQueue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            paymentEventsQueueName,
		DeadLetterQueue: paymentEventsDeadLetterQueue,
		RoutingKeys:     []string{events.PaymentCompletedKey, events.PaymentFailedKey},
	}
}

type statusUpdater interface {
	UpdateStatusProcessed(ctx context.Context, orderUUID uuid.UUID, status models.OrderStatus, eventID, eventType string) error
}

type ledger interface {
	Processed(ctx context.Context, eventID string) (bool, error)
}

// PaymentEventsHandler folds the payment outcome back into the order:
// payment.completed confirms it, payment.failed moves it to its terminal
// failure state. One handler per event type, selected by the dispatch table.
type PaymentEventsHandler struct {
	log    logger.Logger
	repo   statusUpdater
	ledger ledger
}

func NewPaymentEventsHandler(log logger.Logger, repo statusUpdater, ledger ledger) *PaymentEventsHandler {
	return &PaymentEventsHandler{
		log:    log,
		repo:   repo,
		ledger: ledger,
	}
}

func (h *PaymentEventsHandler) Handlers() map[events.Type]consumer.HandleFunc {
	return map[events.Type]consumer.HandleFunc{
		events.PaymentCompleted: h.handlePaymentCompleted,
		events.PaymentFailed:    h.handlePaymentFailed,
	}
}

func (h *PaymentEventsHandler) handlePaymentCompleted(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.order.handlePaymentCompleted"

	var payload events.PaymentCompletedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		return fmt.Errorf("%w: parse payment.completed: %s", consumer.ErrUnprocessable, err.Error())
	}

	return h.transition(ctx, op, payload.EventID, env.MessageID, payload.OrderID,
		models.OrderStatusConfirmed, events.PaymentCompletedKey)
}

func (h *PaymentEventsHandler) handlePaymentFailed(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.order.handlePaymentFailed"

	var payload events.PaymentFailedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		return fmt.Errorf("%w: parse payment.failed: %s", consumer.ErrUnprocessable, err.Error())
	}

	return h.transition(ctx, op, payload.EventID, env.MessageID, payload.OrderID,
		models.OrderStatusPaymentFailed, events.PaymentFailedKey)
}

func (h *PaymentEventsHandler) transition(
	ctx context.Context,
	op, payloadEventID, messageID, orderID string,
	status models.OrderStatus,
	eventType string,
) error {
	eventID := payloadEventID
	if eventID == "" {
		eventID = messageID
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

	orderUUID, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("%w: bad order id %q", consumer.ErrUnprocessable, orderID)
	}

	if err = h.repo.UpdateStatusProcessed(ctx, orderUUID, status, eventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", orderID),
		logger.String("event_id", eventID),
		logger.String("status", string(status)),
	)

	return nil
}
