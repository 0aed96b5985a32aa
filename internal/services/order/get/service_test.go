package get

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type fakeCache struct {
	entries map[uuid.UUID]*models.Order
	added   int
}

func (f *fakeCache) Get(key uuid.UUID) (*models.Order, bool) {
	order, ok := f.entries[key]
	return order, ok
}

func (f *fakeCache) Add(key uuid.UUID, value *models.Order) bool {
	f.entries[key] = value
	f.added++
	return false
}

type fakeOrderGetter struct {
	order      *models.Order
	status     models.OrderStatus
	orderCalls int
}

func (f *fakeOrderGetter) Order(context.Context, uuid.UUID) (*models.Order, error) {
	f.orderCalls++
	if f.order == nil {
		return nil, internalErrors.ErrOrderNotFound
	}

	return f.order, nil
}

func (f *fakeOrderGetter) Status(context.Context, uuid.UUID) (models.OrderStatus, error) {
	return f.status, nil
}

func (f *fakeOrderGetter) OrdersByUserUUID(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func TestOrderByUUIDRefreshesStatusOnCacheHit(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	orderUUID := uuid.New()
	cached := &models.Order{OrderUUID: orderUUID, Status: models.OrderStatusPending, TotalAmount: 20}

	cache := &fakeCache{entries: map[uuid.UUID]*models.Order{orderUUID: cached}}
	getter := &fakeOrderGetter{status: models.OrderStatusConfirmed}

	svc := New(log, cache, getter)

	order, err := svc.OrderByUUID(context.Background(), orderUUID)
	require.NoError(t, err)

	// Items and amounts come from cache, the status is always re-read.
	require.Equal(t, models.OrderStatusConfirmed, order.Status)
	require.Equal(t, 20.0, order.TotalAmount)
	require.Equal(t, 0, getter.orderCalls)

	// The cached copy itself is left untouched.
	require.Equal(t, models.OrderStatusPending, cached.Status)
}

func TestOrderByUUIDFallsThroughOnCacheMiss(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	orderUUID := uuid.New()
	stored := &models.Order{OrderUUID: orderUUID, Status: models.OrderStatusPending}

	cache := &fakeCache{entries: map[uuid.UUID]*models.Order{}}
	getter := &fakeOrderGetter{order: stored}

	svc := New(log, cache, getter)

	order, err := svc.OrderByUUID(context.Background(), orderUUID)
	require.NoError(t, err)
	require.Equal(t, stored, order)
	require.Equal(t, 1, getter.orderCalls)
	require.Equal(t, 1, cache.added)
}

func TestOrderByUUIDNotFound(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	cache := &fakeCache{entries: map[uuid.UUID]*models.Order{}}
	getter := &fakeOrderGetter{}

	svc := New(log, cache, getter)

	_, err := svc.OrderByUUID(context.Background(), uuid.New())
	require.ErrorIs(t, err, internalErrors.ErrOrderNotFound)
}
