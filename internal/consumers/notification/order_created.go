package notification

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
	queueName       = "notification.orders"
	deadLetterQueue = "notification.dlq"
)

func Queue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            queueName,
		DeadLetterQueue: deadLetterQueue,
		RoutingKeys:     []string{events.OrderCreatedKey},
	}
}

type notificationRepository interface {
	CreateProcessed(ctx context.Context, notification *models.Notification, eventID, eventType string) error
}

type ledger interface {
	Processed(ctx context.Context, eventID string) (bool, error)
}

// OrderCreatedHandler records an order confirmation notification. Purely
// side-effecting; emits no follow-on event.
type OrderCreatedHandler struct {
	log    logger.Logger
	repo   notificationRepository
	ledger ledger
}

func NewOrderCreatedHandler(log logger.Logger, repo notificationRepository, ledger ledger) *OrderCreatedHandler {
	return &OrderCreatedHandler{
		log:    log,
		repo:   repo,
		ledger: ledger,
	}
}

func (h *OrderCreatedHandler) Handlers() map[events.Type]consumer.HandleFunc {
	return map[events.Type]consumer.HandleFunc{
		events.OrderCreated: h.handleOrderCreated,
	}
}

func (h *OrderCreatedHandler) handleOrderCreated(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.notification.handleOrderCreated"

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

	userUUID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("%w: bad user id %q", consumer.ErrUnprocessable, payload.UserID)
	}

	notification := &models.Notification{
		OrderUUID: orderUUID,
		UserUUID:  userUUID,
		Message:   fmt.Sprintf("Order %s received, total %.2f", payload.OrderID, payload.TotalAmount),
	}

	if err = h.repo.CreateProcessed(ctx, notification, eventID, events.OrderCreatedKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
	)

	return nil
}
