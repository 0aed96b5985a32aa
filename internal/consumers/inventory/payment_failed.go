package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const (
	paymentFailedQueueName       = "inventory.payment-failed"
	paymentFailedDeadLetterQueue = "inventory.payment-failed.dlq"

	releaseEventType = "payment.failed.release"
)

func PaymentFailedQueue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            paymentFailedQueueName,
		DeadLetterQueue: paymentFailedDeadLetterQueue,
		RoutingKeys:     []string{events.PaymentFailedKey},
	}
}

type releaser interface {
	ReleaseByOrderUUID(ctx context.Context, orderUUID uuid.UUID, releaseEventID, eventType string) error
}

// PaymentFailedHandler runs the compensation: stock reserved for an order
// whose payment failed is given back. The release is keyed by a derived
// event id since it is a distinct effect that must itself be idempotent.
type PaymentFailedHandler struct {
	log    logger.Logger
	repo   releaser
	ledger ledger
}

func NewPaymentFailedHandler(log logger.Logger, repo releaser, ledger ledger) *PaymentFailedHandler {
	return &PaymentFailedHandler{
		log:    log,
		repo:   repo,
		ledger: ledger,
	}
}

func (h *PaymentFailedHandler) Handlers() map[events.Type]consumer.HandleFunc {
	return map[events.Type]consumer.HandleFunc{
		events.PaymentFailed: h.handlePaymentFailed,
	}
}

func (h *PaymentFailedHandler) handlePaymentFailed(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.inventory.handlePaymentFailed"

	var payload events.PaymentFailedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		return fmt.Errorf("%w: parse payment.failed: %s", consumer.ErrUnprocessable, err.Error())
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = env.MessageID
	}
	if eventID == "" {
		return fmt.Errorf("%w: missing event id", consumer.ErrUnprocessable)
	}

	orderUUID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return fmt.Errorf("%w: bad order id %q", consumer.ErrUnprocessable, payload.OrderID)
	}

	releaseEventID := fmt.Sprintf("release:%s:%s", payload.OrderID, eventID)

	processed, err := h.ledger.Processed(ctx, releaseEventID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if processed {
		h.log.InfoContext(ctx, op,
			logger.String("release_event_id", releaseEventID),
			logger.String("verdict", "duplicate, skipping"),
		)
		return nil
	}

	if err = h.repo.ReleaseByOrderUUID(ctx, orderUUID, releaseEventID, releaseEventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
		logger.String("reason", payload.Reason),
	)

	return nil
}
