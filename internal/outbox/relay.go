package outbox

import (
	"context"
	"time"

	"github.com/orderflow/fulfillment_system/internal/domain/events"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type store interface {
	Unpublished(ctx context.Context, limit int) ([]models.OutBoxEntry, error)
	MarkPublished(ctx context.Context, id int) error
}

type busPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// Relay forwards pending outbox rows to the bus on a fixed interval,
// independent of the request-handling path. A row is marked published only
// after a confirmed send, so a crash before the mark just means the next
// tick (or the next relay instance) delivers it again.
type Relay struct {
	log   logger.Logger
	store store
	bus   busPublisher

	pollInterval time.Duration
	batchSize    int
}

func NewRelay(
	log logger.Logger,
	store store,
	bus busPublisher,
	pollInterval time.Duration,
	batchSize int,
) *Relay {
	return &Relay{
		log:          log,
		store:        store,
		bus:          bus,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	const op = "outbox.Relay.Run"

	r.log.Info(op, logger.String("poll_interval", r.pollInterval.String()))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	const op = "outbox.Relay.tick"

	pending, err := r.store.Unpublished(ctx, r.batchSize)
	if err != nil {
		r.log.Error(op, logger.String("error", err.Error()))
		return
	}

	for _, entry := range pending {
		if _, ok := events.TypeFromRoutingKey(entry.EventType); !ok {
			// Unrecognized event types are marked published rather than
			// retried forever; schema evolution must not wedge the relay.
			r.log.Warn(op,
				logger.String("event_type", entry.EventType),
				logger.String("event_id", entry.EventID),
				logger.String("verdict", "unknown event type, marking published"),
			)
			if err = r.store.MarkPublished(ctx, entry.ID); err != nil {
				r.log.Error(op, logger.String("error", err.Error()))
			}
			continue
		}

		if err = r.bus.Publish(ctx, entry.EventType, entry.EventID, entry.Payload); err != nil {
			// Row stays pending; the next tick retries. Publish failures are
			// self-healing without any relay-side retry bookkeeping.
			r.log.Warn(op,
				logger.String("event_id", entry.EventID),
				logger.String("publish error", err.Error()),
			)
			continue
		}

		if err = r.store.MarkPublished(ctx, entry.ID); err != nil {
			r.log.Error(op, logger.String("error", err.Error()))
		}

		r.log.Debug(op,
			logger.String("event_type", entry.EventType),
			logger.String("event_id", entry.EventID),
		)
	}
}
