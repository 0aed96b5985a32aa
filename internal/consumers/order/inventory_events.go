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
	inventoryEventsQueueName       = "order.inventory-events"
	inventoryEventsDeadLetterQueue = "order.inventory-events.dlq"
)

func InventoryEventsQueue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            inventoryEventsQueueName,
		DeadLetterQueue: inventoryEventsDeadLetterQueue,
		RoutingKeys:     []string{events.InventoryReservationFailedKey},
	}
}

// InventoryEventsHandler cancels orders whose stock could not be reserved.
type InventoryEventsHandler struct {
	log    logger.Logger
	repo   statusUpdater
	ledger ledger
}

func NewInventoryEventsHandler(log logger.Logger, repo statusUpdater, ledger ledger) *InventoryEventsHandler {
	return &InventoryEventsHandler{
		log:    log,
		repo:   repo,
		ledger: ledger,
	}
}

func (h *InventoryEventsHandler) Handlers() map[events.Type]consumer.HandleFunc {
	return map[events.Type]consumer.HandleFunc{
		events.InventoryReservationFailed: h.handleReservationFailed,
	}
}

func (h *InventoryEventsHandler) handleReservationFailed(ctx context.Context, env consumer.Envelope) error {
	const op = "consumers.order.handleReservationFailed"

	var payload events.InventoryReservationFailedPayload
	if err := json.Unmarshal(env.Body, &payload); err != nil {
		return fmt.Errorf("%w: parse inventory.reservation_failed: %s", consumer.ErrUnprocessable, err.Error())
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

	if err = h.repo.UpdateStatusProcessed(ctx, orderUUID, models.OrderStatusCancelled, eventID, events.InventoryReservationFailedKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
		logger.String("reason", payload.Reason),
	)

	return nil
}
