package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type transitionCall struct {
	orderUUID uuid.UUID
	status    models.OrderStatus
	eventID   string
	eventType string
}

type fakeStatusUpdater struct {
	calls []transitionCall
}

func (f *fakeStatusUpdater) UpdateStatusProcessed(_ context.Context, orderUUID uuid.UUID, status models.OrderStatus, eventID, eventType string) error {
	f.calls = append(f.calls, transitionCall{orderUUID: orderUUID, status: status, eventID: eventID, eventType: eventType})
	return nil
}

type fakeLedger struct {
	processed map[string]bool
}

func (f *fakeLedger) Processed(_ context.Context, eventID string) (bool, error) {
	return f.processed[eventID], nil
}

func TestHandlePaymentCompletedConfirmsOrder(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeStatusUpdater{}
	h := NewPaymentEventsHandler(log, repo, &fakeLedger{processed: map[string]bool{}})

	orderID := uuid.NewString()
	body, err := json.Marshal(events.PaymentCompletedPayload{
		EventID:   "evt-1",
		OrderID:   orderID,
		PaymentID: uuid.NewString(),
		Status:    string(models.PaymentStatusCompleted),
		Amount:    100,
	})
	require.NoError(t, err)

	env := consumer.Envelope{Body: body, MessageID: "evt-1", RoutingKey: events.PaymentCompletedKey}

	require.NoError(t, h.handlePaymentCompleted(context.Background(), env))

	require.Len(t, repo.calls, 1)
	require.Equal(t, orderID, repo.calls[0].orderUUID.String())
	require.Equal(t, models.OrderStatusConfirmed, repo.calls[0].status)
	require.Equal(t, "evt-1", repo.calls[0].eventID)
	require.Equal(t, events.PaymentCompletedKey, repo.calls[0].eventType)
}

func TestHandlePaymentCompletedSkipsDuplicate(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeStatusUpdater{}
	h := NewPaymentEventsHandler(log, repo, &fakeLedger{processed: map[string]bool{"evt-1": true}})

	body, err := json.Marshal(events.PaymentCompletedPayload{EventID: "evt-1", OrderID: uuid.NewString()})
	require.NoError(t, err)

	env := consumer.Envelope{Body: body, MessageID: "evt-1", RoutingKey: events.PaymentCompletedKey}

	require.NoError(t, h.handlePaymentCompleted(context.Background(), env))
	require.Empty(t, repo.calls)
}

func TestHandlePaymentFailedMovesOrderToTerminalFailure(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeStatusUpdater{}
	h := NewPaymentEventsHandler(log, repo, &fakeLedger{processed: map[string]bool{}})

	orderID := uuid.NewString()
	body, err := json.Marshal(events.PaymentFailedPayload{
		EventID: "evt-2",
		OrderID: orderID,
		Reason:  "max_retries_exceeded",
	})
	require.NoError(t, err)

	env := consumer.Envelope{Body: body, MessageID: "evt-2", RoutingKey: events.PaymentFailedKey}

	require.NoError(t, h.handlePaymentFailed(context.Background(), env))

	require.Len(t, repo.calls, 1)
	require.Equal(t, models.OrderStatusPaymentFailed, repo.calls[0].status)
	require.Equal(t, events.PaymentFailedKey, repo.calls[0].eventType)
}

func TestHandlePaymentCompletedRejectsBadPayload(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	h := NewPaymentEventsHandler(log, &fakeStatusUpdater{}, &fakeLedger{processed: map[string]bool{}})

	env := consumer.Envelope{Body: []byte(`{not json`), MessageID: "evt-1", RoutingKey: events.PaymentCompletedKey}

	err := h.handlePaymentCompleted(context.Background(), env)
	require.ErrorIs(t, err, consumer.ErrUnprocessable)
}

func TestHandleReservationFailedCancelsOrder(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeStatusUpdater{}
	h := NewInventoryEventsHandler(log, repo, &fakeLedger{processed: map[string]bool{}})

	orderID := uuid.NewString()
	body, err := json.Marshal(events.InventoryReservationFailedPayload{
		EventID: "evt-3",
		OrderID: orderID,
		Reason:  "Insufficient stock for product p1: need 2, have 1",
	})
	require.NoError(t, err)

	env := consumer.Envelope{Body: body, MessageID: "evt-3", RoutingKey: events.InventoryReservationFailedKey}

	require.NoError(t, h.handleReservationFailed(context.Background(), env))

	require.Len(t, repo.calls, 1)
	require.Equal(t, orderID, repo.calls[0].orderUUID.String())
	require.Equal(t, models.OrderStatusCancelled, repo.calls[0].status)
	require.Equal(t, events.InventoryReservationFailedKey, repo.calls[0].eventType)
}
