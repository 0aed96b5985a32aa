package idempotency

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orderflow/fulfillment_system/pkg/logger"
)

// Ledger is the per-service durable set of processed event ids. A row for
// an event id means its business effect has already been applied; every
// consumer checks it before applying anything.
type Ledger struct {
	log logger.Logger
	db  *sqlx.DB
}

func NewLedger(log logger.Logger, db *sqlx.DB) *Ledger {
	return &Ledger{log: log, db: db}
}

func (l *Ledger) Processed(ctx context.Context, eventID string) (bool, error) {
	const op = "idempotency.Ledger.Processed"

	const query = `SELECT EXISTS (SELECT 1 FROM "processed_events" WHERE event_id = $1)`

	var exists bool
	if err := l.db.GetContext(ctx, &exists, query, eventID); err != nil {
		l.log.Error(op, logger.String("error", err.Error()))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// MarkProcessed inserts the ledger row through the caller's executor so it
// can share the transaction that applies the business effect.
func (l *Ledger) MarkProcessed(ctx context.Context, ext sqlx.ExtContext, eventID, eventType string) error {
	const op = "idempotency.Ledger.MarkProcessed"

	const query = `INSERT INTO "processed_events" (event_id, event_type) VALUES ($1, $2)`

	if _, err := ext.ExecContext(ctx, query, eventID, eventType); err != nil {
		l.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
