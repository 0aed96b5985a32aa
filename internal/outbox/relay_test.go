package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type fakeStore struct {
	pending []models.OutBoxEntry
	marked  []int
	markErr error
}

func (f *fakeStore) Unpublished(context.Context, int) ([]models.OutBoxEntry, error) {
	return f.pending, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, id int) error {
	if f.markErr != nil {
		return f.markErr
	}

	f.marked = append(f.marked, id)
	return nil
}

type publishedMessage struct {
	routingKey string
	messageID  string
}

type fakeBus struct {
	published  []publishedMessage
	publishErr error
}

func (f *fakeBus) Publish(_ context.Context, routingKey, messageID string, _ []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}

	f.published = append(f.published, publishedMessage{routingKey: routingKey, messageID: messageID})
	return nil
}

func pendingEntry(id int, eventType, eventID string) models.OutBoxEntry {
	return models.OutBoxEntry{
		ID:        id,
		EventType: eventType,
		EventID:   eventID,
		Payload:   []byte(`{}`),
	}
}

func TestTickPublishesAndMarks(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	store := &fakeStore{pending: []models.OutBoxEntry{
		pendingEntry(1, events.OrderCreatedKey, "evt-1"),
		pendingEntry(2, events.OrderCreatedKey, "evt-2"),
	}}
	bus := &fakeBus{}

	NewRelay(log, store, bus, 0, 10).tick(context.Background())

	require.Len(t, bus.published, 2)
	require.Equal(t, events.OrderCreatedKey, bus.published[0].routingKey)
	require.Equal(t, "evt-1", bus.published[0].messageID)
	require.Equal(t, []int{1, 2}, store.marked)
}

func TestTickLeavesEntryPendingOnPublishFailure(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	store := &fakeStore{pending: []models.OutBoxEntry{
		pendingEntry(1, events.OrderCreatedKey, "evt-1"),
	}}
	bus := &fakeBus{publishErr: errors.New("broker down")}

	NewRelay(log, store, bus, 0, 10).tick(context.Background())

	require.Empty(t, bus.published)
	require.Empty(t, store.marked)
}

func TestTickMarksUnknownEventTypeWithoutPublishing(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	store := &fakeStore{pending: []models.OutBoxEntry{
		pendingEntry(7, "order.renamed", "evt-7"),
	}}
	bus := &fakeBus{}

	NewRelay(log, store, bus, 0, 10).tick(context.Background())

	require.Empty(t, bus.published)
	require.Equal(t, []int{7}, store.marked)
}
