package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/consumer"
	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type releaseCall struct {
	orderUUID uuid.UUID
	eventID   string
	eventType string
}

type fakeReleaser struct {
	calls []releaseCall
}

func (f *fakeReleaser) ReleaseByOrderUUID(_ context.Context, orderUUID uuid.UUID, releaseEventID, eventType string) error {
	f.calls = append(f.calls, releaseCall{orderUUID: orderUUID, eventID: releaseEventID, eventType: eventType})
	return nil
}

func paymentFailedEnvelope(t *testing.T, eventID, orderID string) consumer.Envelope {
	t.Helper()

	body, err := json.Marshal(events.PaymentFailedPayload{
		EventID: eventID,
		OrderID: orderID,
		Reason:  "max_retries_exceeded",
	})
	require.NoError(t, err)

	return consumer.Envelope{
		Body:       body,
		MessageID:  eventID,
		RoutingKey: events.PaymentFailedKey,
	}
}

func TestHandlePaymentFailedReleasesWithDerivedEventID(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	repo := &fakeReleaser{}
	ledger := &fakeLedger{processed: map[string]bool{}}

	h := NewPaymentFailedHandler(log, repo, ledger)

	orderID := uuid.NewString()
	env := paymentFailedEnvelope(t, "evt-9", orderID)

	require.NoError(t, h.handlePaymentFailed(context.Background(), env))

	wantEventID := fmt.Sprintf("release:%s:evt-9", orderID)

	require.Equal(t, []string{wantEventID}, ledger.asked)
	require.Len(t, repo.calls, 1)
	require.Equal(t, orderID, repo.calls[0].orderUUID.String())
	require.Equal(t, wantEventID, repo.calls[0].eventID)
	require.Equal(t, releaseEventType, repo.calls[0].eventType)
}

func TestHandlePaymentFailedSkipsDuplicateRelease(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	orderID := uuid.NewString()
	releaseID := fmt.Sprintf("release:%s:evt-9", orderID)

	repo := &fakeReleaser{}
	ledger := &fakeLedger{processed: map[string]bool{releaseID: true}}

	h := NewPaymentFailedHandler(log, repo, ledger)

	env := paymentFailedEnvelope(t, "evt-9", orderID)

	require.NoError(t, h.handlePaymentFailed(context.Background(), env))
	require.Empty(t, repo.calls)
}

func TestHandlePaymentFailedRejectsBadOrderID(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	h := NewPaymentFailedHandler(log, &fakeReleaser{}, &fakeLedger{processed: map[string]bool{}})

	env := paymentFailedEnvelope(t, "evt-9", "not-a-uuid")

	err := h.handlePaymentFailed(context.Background(), env)
	require.ErrorIs(t, err, consumer.ErrUnprocessable)
}
