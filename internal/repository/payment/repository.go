package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type processedMarker interface {
	MarkProcessed(ctx context.Context, ext sqlx.ExtContext, eventID, eventType string) error
}

type Repository struct {
	log logger.Logger
	db  *sqlx.DB

	processedMarker processedMarker
}

func NewPaymentRepository(log logger.Logger, db *sqlx.DB, processedMarker processedMarker) *Repository {
	return &Repository{
		log:             log,
		db:              db,
		processedMarker: processedMarker,
	}
}

// CreateProcessed inserts the payment and its ledger row atomically.
func (pr *Repository) CreateProcessed(ctx context.Context, payment *models.Payment, eventType string) (err error) {
	const op = "repository.payment.CreateProcessed"

	tx, err := pr.db.BeginTxx(ctx, nil)
	if err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	const paymentQuery = `
		INSERT INTO "payment" (uuid, order_uuid, event_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err = tx.ExecContext(ctx, paymentQuery,
		payment.PaymentUUID, payment.OrderUUID, payment.EventID, payment.Amount, payment.Status,
	); err != nil {
		pr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: payment execute statement: %w", op, err)
	}

	if err = pr.processedMarker.MarkProcessed(ctx, tx, payment.EventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}
