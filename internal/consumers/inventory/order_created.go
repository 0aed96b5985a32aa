package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	inventoryRepo "github.com/orderflow/fulfillment_system/internal/repository/inventory"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const (
	ordersQueueName       = "inventory.orders"
	ordersDeadLetterQueue = "inventory.dlq"
)

func OrdersQueue() rabbitmq.QueueSpec {
	return rabbitmq.QueueSpec{
		Name:            ordersQueueName,
		DeadLetterQueue: ordersDeadLetterQueue,
		RoutingKeys:     []string{events.OrderCreatedKey},
	}
}

type reserver interface {
	Reserve(ctx context.Context, orderUUID uuid.UUID, items []inventoryRepo.ReserveItem, eventID string) error
}

type ledger interface {
	Processed(ctx context.Context, eventID string) (bool, error)
}

type busPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// OrderCreatedHandler reserves stock for a new order. Insufficient stock is
// a business rejection, not a transient fault: it is answered immediately
// with inventory.reservation_failed instead of cycling through retries.
type OrderCreatedHandler struct {
	log    logger.Logger
	repo   reserver
	ledger ledger
	bus    busPublisher
}

func NewOrderCreatedHandler(log logger.Logger, repo reserver, ledger ledger, bus busPublisher) *OrderCreatedHandler {
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
	const op = "consumers.inventory.handleOrderCreated"

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

	items := make([]inventoryRepo.ReserveItem, 0, len(payload.Items))
	reservedItems := make([]events.ReservedItemPayload, 0, len(payload.Items))
	for _, item := range payload.Items {
		productUUID, parseErr := uuid.Parse(item.ProductID)
		if parseErr != nil {
			return fmt.Errorf("%w: bad product id %q", consumer.ErrUnprocessable, item.ProductID)
		}

		items = append(items, inventoryRepo.ReserveItem{ProductUUID: productUUID, Quantity: item.Quantity})
		reservedItems = append(reservedItems, events.ReservedItemPayload{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	if err = h.repo.Reserve(ctx, orderUUID, items, eventID); err != nil {
		if errors.Is(err, internalErrors.ErrInsufficientStock) || errors.Is(err, internalErrors.ErrProductNotFound) {
			return h.publishReservationFailed(ctx, op, payload.OrderID, eventID, err.Error())
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	reserved, err := json.Marshal(events.InventoryReservedPayload{
		EventID: eventID,
		OrderID: payload.OrderID,
		Items:   reservedItems,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal inventory.reserved: %w", op, err)
	}

	if err = h.bus.Publish(ctx, events.InventoryReservedKey, eventID, reserved); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.log.InfoContext(ctx, op,
		logger.String("order_uuid", payload.OrderID),
		logger.String("event_id", eventID),
		logger.Int("items", len(items)),
	)

	return nil
}

func (h *OrderCreatedHandler) publishReservationFailed(ctx context.Context, op, orderID, eventID, reason string) error {
	h.log.WarnContext(ctx, op,
		logger.String("order_uuid", orderID),
		logger.String("reserve failed", reason),
	)

	failed, err := json.Marshal(events.InventoryReservationFailedPayload{
		EventID: eventID,
		OrderID: orderID,
		Reason:  reason,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal inventory.reservation_failed: %w", op, err)
	}

	if err = h.bus.Publish(ctx, events.InventoryReservationFailedKey, "reservation-failed-"+eventID, failed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
