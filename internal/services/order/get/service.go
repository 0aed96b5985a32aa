package get

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/cache_impl"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type orderGetter interface {
	Order(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error)
	Status(ctx context.Context, orderUUID uuid.UUID) (models.OrderStatus, error)
	OrdersByUserUUID(ctx context.Context, userUUID uuid.UUID) ([]models.Order, error)
}

type OrderRetrievalService struct {
	log   logger.Logger
	cache cache_impl.CacheI[uuid.UUID, *models.Order]

	orderGetter orderGetter
}

func New(
	log logger.Logger,
	cache cache_impl.CacheI[uuid.UUID, *models.Order],
	orderGetter orderGetter,
) *OrderRetrievalService {
	return &OrderRetrievalService{
		log:         log,
		cache:       cache,
		orderGetter: orderGetter,
	}
}

// OrderByUUID serves items and amounts from cache when possible. Status
// transitions happen asynchronously, so the status of a cached order is
// always re-read before returning.
func (os *OrderRetrievalService) OrderByUUID(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error) {
	const op = "services.order.get.OrderByUUID"

	if cached, ok := os.cache.Get(orderUUID); ok && cached != nil {
		status, err := os.orderGetter.Status(ctx, orderUUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		order := *cached
		order.Status = status

		os.log.DebugContext(ctx, op, logger.String("cache", "hit"))

		return &order, nil
	}

	order, err := os.orderGetter.Order(ctx, orderUUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_ = os.cache.Add(orderUUID, order)

	return order, nil
}

func (os *OrderRetrievalService) OrdersByUserUUID(ctx context.Context, userUUID uuid.UUID) ([]models.Order, error) {
	const op = "services.order.get.OrdersByUserUUID"

	orders, err := os.orderGetter.OrdersByUserUUID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}
