package create

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/cache_impl"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/internal/outbox"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context, order *models.Order, entry outbox.Entry) error
}

type userChecker interface {
	Exists(ctx context.Context, userUUID uuid.UUID) error
}

type productPricer interface {
	Price(ctx context.Context, productUUID uuid.UUID) (float64, error)
}

type OrderCreationService struct {
	log   logger.Logger
	cache cache_impl.CacheI[uuid.UUID, *models.Order]

	orderCreator  orderCreator
	userChecker   userChecker
	productPricer productPricer
}

func New(
	log logger.Logger,
	cache cache_impl.CacheI[uuid.UUID, *models.Order],
	orderCreator orderCreator,
	userChecker userChecker,
	productPricer productPricer,
) *OrderCreationService {
	return &OrderCreationService{
		log:           log,
		cache:         cache,
		orderCreator:  orderCreator,
		userChecker:   userChecker,
		productPricer: productPricer,
	}
}

// Create validates the collaborators synchronously, then commits the order
// and its order.created outbox entry in one unit of work. Everything after
// the commit happens asynchronously through the saga.
func (os *OrderCreationService) Create(ctx context.Context, order *models.Order) (string, error) {
	const op = "services.order.create.Create"

	if err := os.userChecker.Exists(ctx, order.UserUUID); err != nil {
		os.log.WarnContext(ctx, op, logger.String("user check failed", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	for i := range order.Items {
		price, err := os.productPricer.Price(ctx, order.Items[i].ProductUUID)
		if err != nil {
			os.log.WarnContext(ctx, op, logger.String("price check failed", err.Error()))
			return "", fmt.Errorf("%s: %w", op, err)
		}

		order.Items[i].UnitPrice = price
		order.TotalAmount += price * float64(order.Items[i].Quantity)
	}
	order.TotalAmount = math.Round(order.TotalAmount*100) / 100

	order.OrderUUID = uuid.New()
	order.Status = models.OrderStatusPending
	order.CreatedAt = time.Now().UTC()
	for i := range order.Items {
		order.Items[i].OrderUUID = order.OrderUUID
	}

	entry, err := os.outboxEntry(order)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err = os.orderCreator.Create(ctx, order, entry); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_ = os.cache.Add(order.OrderUUID, order)

	os.log.InfoContext(ctx, op,
		logger.String("order_uuid", order.OrderUUID.String()),
		logger.String("event_id", entry.EventID),
	)

	return order.OrderUUID.String(), nil
}

func (os *OrderCreationService) outboxEntry(order *models.Order) (outbox.Entry, error) {
	const op = "services.order.create.outboxEntry"

	eventID := uuid.NewString()

	items := make([]events.OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, events.OrderItemPayload{
			ProductID: item.ProductUUID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	payload, err := json.Marshal(events.OrderCreatedPayload{
		EventID:     eventID,
		OrderID:     order.OrderUUID.String(),
		UserID:      order.UserUUID.String(),
		TotalAmount: order.TotalAmount,
		Items:       items,
		CreatedAt:   order.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return outbox.Entry{}, fmt.Errorf("%s: marshal payload: %w", op, err)
	}

	return outbox.Entry{
		AggregateType: "order",
		AggregateID:   order.OrderUUID.String(),
		EventType:     events.OrderCreatedKey,
		EventID:       eventID,
		Payload:       payload,
	}, nil
}
