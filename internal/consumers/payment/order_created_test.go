package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type fakePaymentRepo struct {
	created []*models.Payment
	err     error
}

func (f *fakePaymentRepo) CreateProcessed(_ context.Context, payment *models.Payment, _ string) error {
	if f.err != nil {
		return f.err
	}

	f.created = append(f.created, payment)
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

func orderCreatedEnvelope(t *testing.T, eventID, orderID string, totalAmount float64) consumer.Envelope {
	t.Helper()

	body, err := json.Marshal(events.OrderCreatedPayload{
		EventID:     eventID,
		OrderID:     orderID,
		UserID:      uuid.NewString(),
		TotalAmount: totalAmount,
	})
	require.NoError(t, err)

	return consumer.Envelope{
		Body:       body,
		MessageID:  eventID,
		RoutingKey: events.OrderCreatedKey,
	}
}

func TestHandleOrderCreatedChargesAndAnnounces(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakePaymentRepo{}
	ledger := &fakeLedger{processed: map[string]bool{}}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, ledger, bus)

	orderID := uuid.NewString()
	env := orderCreatedEnvelope(t, "evt-1", orderID, 1199.98)

	require.NoError(t, h.handleOrderCreated(context.Background(), env))

	require.Len(t, repo.created, 1)
	require.Equal(t, orderID, repo.created[0].OrderUUID.String())
	require.Equal(t, 1199.98, repo.created[0].Amount)
	require.Equal(t, models.PaymentStatusCompleted, repo.created[0].Status)

	require.Len(t, bus.published, 1)
	require.Equal(t, events.PaymentCompletedKey, bus.published[0].routingKey)
	require.Equal(t, "evt-1", bus.published[0].messageID)

	var completed events.PaymentCompletedPayload
	require.NoError(t, json.Unmarshal(bus.published[0].body, &completed))
	require.Equal(t, orderID, completed.OrderID)
	require.Equal(t, 1199.98, completed.Amount)
}

func TestHandleOrderCreatedSkipsDuplicate(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakePaymentRepo{}
	ledger := &fakeLedger{processed: map[string]bool{"evt-1": true}}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, ledger, bus)

	env := orderCreatedEnvelope(t, "evt-1", uuid.NewString(), 100)

	require.NoError(t, h.handleOrderCreated(context.Background(), env))

	// The duplicate neither re-charges nor re-announces.
	require.Empty(t, repo.created)
	require.Empty(t, bus.published)
}

func TestHandleOrderCreatedRejectsMissingEventID(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	h := NewOrderCreatedHandler(log, &fakePaymentRepo{}, &fakeLedger{processed: map[string]bool{}}, &fakeBus{})

	env := consumer.Envelope{
		Body:       []byte(`{"orderId":"` + uuid.NewString() + `"}`),
		RoutingKey: events.OrderCreatedKey,
	}

	err := h.handleOrderCreated(context.Background(), env)
	require.ErrorIs(t, err, consumer.ErrUnprocessable)
}

func TestHandleOrderCreatedPropagatesRepoError(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakePaymentRepo{err: errors.New("db down")}
	bus := &fakeBus{}

	h := NewOrderCreatedHandler(log, repo, &fakeLedger{processed: map[string]bool{}}, bus)

	env := orderCreatedEnvelope(t, "evt-1", uuid.NewString(), 100)

	err := h.handleOrderCreated(context.Background(), env)
	require.Error(t, err)
	require.NotErrorIs(t, err, consumer.ErrUnprocessable)
	require.Empty(t, bus.published)
}

func TestOnExhaustedPublishesPaymentFailed(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	bus := &fakeBus{}
	h := NewOrderCreatedHandler(log, &fakePaymentRepo{}, &fakeLedger{processed: map[string]bool{}}, bus)

	orderID := uuid.NewString()
	env := orderCreatedEnvelope(t, "evt-1", orderID, 100)

	h.OnExhausted(context.Background(), env)

	require.Len(t, bus.published, 1)
	require.Equal(t, events.PaymentFailedKey, bus.published[0].routingKey)
	require.Equal(t, "failed-evt-1", bus.published[0].messageID)

	var failed events.PaymentFailedPayload
	require.NoError(t, json.Unmarshal(bus.published[0].body, &failed))
	require.Equal(t, orderID, failed.OrderID)
	require.Equal(t, "max_retries_exceeded", failed.Reason)
}
