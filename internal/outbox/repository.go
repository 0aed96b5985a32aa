package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type Entry struct {
	AggregateType string
	AggregateID   string
	EventType     string
	EventID       string
	Payload       json.RawMessage
}

type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func New(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{log: log, db: db}
}

// InsertTx writes an entry inside the caller's transaction so the business
// state change and its event commit or roll back together.
func (r *Repository) InsertTx(ctx context.Context, ext sqlx.ExtContext, entry Entry) error {
	const op = "outbox.Repository.InsertTx"

	const query = `
		INSERT INTO "outbox" (aggregate_type, aggregate_id, event_type, event_id, payload)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := ext.ExecContext(ctx, query,
		entry.AggregateType, entry.AggregateID, entry.EventType, entry.EventID, entry.Payload,
	); err != nil {
		r.log.Error(op, logger.String("outbox insert error", err.Error()))
		return fmt.Errorf("%s: outbox insert error: %w", op, err)
	}

	return nil
}

// Unpublished returns pending entries oldest first for fair delivery.
func (r *Repository) Unpublished(ctx context.Context, limit int) ([]models.OutBoxEntry, error) {
	const op = "outbox.Repository.Unpublished"

	const query = `
		SELECT id, aggregate_type, aggregate_id, event_type, event_id, payload, created_at, published_at
			FROM "outbox"
			WHERE published_at IS NULL
			ORDER BY created_at ASC
			LIMIT $1
	`

	var entries []models.OutBoxEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		r.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: select unpublished: %w", op, err)
	}

	return entries, nil
}

// MarkPublished stamps the published transition. Re-stamping an already
// published row is a no-op, which makes relay retries idempotent.
func (r *Repository) MarkPublished(ctx context.Context, id int) error {
	const op = "outbox.Repository.MarkPublished"

	const query = `UPDATE "outbox" SET published_at = now() WHERE id = $1 AND published_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: mark published: %w", op, err)
	}

	return nil
}
