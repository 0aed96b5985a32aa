package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	inventoryRepo "github.com/orderflow/fulfillment_system/internal/repository/inventory"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type reserveCall struct {
	orderUUID uuid.UUID
	items     []inventoryRepo.ReserveItem
	eventID   string
}

type fakeReserver struct {
	calls []reserveCall
	err   error
}

func (f *fakeReserver) Reserve(_ context.Context, orderUUID uuid.UUID, items []inventoryRepo.ReserveItem, eventID string) error {
	if f.err != nil {
		return f.err
	}

	f.calls = append(f.calls, reserveCall{orderUUID: orderUUID, items: items, eventID: eventID})
	return nil
}

type fakeLedger struct {
	processed map[string]bool
	asked     []string
}

func (f *fakeLedger) Processed(_ context.Context, eventID string) (bool, error) {
	f.asked = append(f.asked, eventID)
	return f.processed[eventID], nil
}

type publishedMessage struct {
	routingKey string
	messageID  string
	body       []byte
}

type fakeBus struct {
	published []publishedMessage
}

func (f *fakeBus) Publish(_ context.Context, routingKey, messageID string, body []byte) error {
	f.published = append(f.published, publishedMessage{routingKey: routingKey, messageID: messageID, body: body})
	return nil
}

func orderCreatedEnvelope(t *testing.T, eventID, orderID, productID string, quantity int) consumer.Envelope {
	t.Helper()

	body, err := json.Marshal(events.OrderCreatedPayload{
		EventID: eventID,
		OrderID: orderID,
		UserID:  uuid.NewString(),
		Items: []events.OrderItemPayload{
			{ProductID: productID, Quantity: quantity, UnitPrice: 10},
		},
	})
	require.NoError(t, err)

	return consumer.Envelope{
		Body:       body,
		MessageID:  eventID,
		RoutingKey: events.OrderCreatedKey,
	}
}

func TestHandleOrderCreatedReservesAndAnnounces(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeReserver{}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, &fakeLedger{processed: map[string]bool{}}, bus)

	orderID := uuid.NewString()
	productID := uuid.NewString()
	env := orderCreatedEnvelope(t, "evt-1", orderID, productID, 2)

	require.NoError(t, h.handleOrderCreated(context.Background(), env))

	require.Len(t, repo.calls, 1)
	require.Equal(t, orderID, repo.calls[0].orderUUID.String())
	require.Equal(t, "evt-1", repo.calls[0].eventID)
	require.Len(t, repo.calls[0].items, 1)
	require.Equal(t, 2, repo.calls[0].items[0].Quantity)

	require.Len(t, bus.published, 1)
	require.Equal(t, events.InventoryReservedKey, bus.published[0].routingKey)

	var reserved events.InventoryReservedPayload
	require.NoError(t, json.Unmarshal(bus.published[0].body, &reserved))
	require.Equal(t, orderID, reserved.OrderID)
	require.Equal(t, productID, reserved.Items[0].ProductID)
}

func TestHandleOrderCreatedAnswersInsufficientStockWithoutRetrying(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	productUUID := uuid.New()
	repo := &fakeReserver{err: &inventoryRepo.InsufficientStockError{
		ProductUUID: productUUID,
		Need:        2,
		Have:        1,
	}}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, &fakeLedger{processed: map[string]bool{}}, bus)

	orderID := uuid.NewString()
	env := orderCreatedEnvelope(t, "evt-1", orderID, productUUID.String(), 2)

	// A business rejection answers with a compensating event and acks.
	require.NoError(t, h.handleOrderCreated(context.Background(), env))

	require.Len(t, bus.published, 1)
	require.Equal(t, events.InventoryReservationFailedKey, bus.published[0].routingKey)
	require.Equal(t, "reservation-failed-evt-1", bus.published[0].messageID)

	var failed events.InventoryReservationFailedPayload
	require.NoError(t, json.Unmarshal(bus.published[0].body, &failed))
	require.Equal(t, orderID, failed.OrderID)
	require.Equal(t,
		fmt.Sprintf("Insufficient stock for product %s: need 2, have 1", productUUID),
		failed.Reason,
	)
}

func TestHandleOrderCreatedEscalatesTransientFailure(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeReserver{err: errors.New("db down")}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, &fakeLedger{processed: map[string]bool{}}, bus)

	env := orderCreatedEnvelope(t, "evt-1", uuid.NewString(), uuid.NewString(), 1)

	err := h.handleOrderCreated(context.Background(), env)
	require.Error(t, err)
	require.NotErrorIs(t, err, consumer.ErrUnprocessable)
	require.Empty(t, bus.published)
}

func TestHandleOrderCreatedSkipsDuplicate(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeReserver{}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, &fakeLedger{processed: map[string]bool{"evt-1": true}}, bus)

	env := orderCreatedEnvelope(t, "evt-1", uuid.NewString(), uuid.NewString(), 1)

	require.NoError(t, h.handleOrderCreated(context.Background(), env))
	require.Empty(t, repo.calls)
	require.Empty(t, bus.published)
}
