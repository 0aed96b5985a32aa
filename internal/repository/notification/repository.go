package notification

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

func NewNotificationRepository(log logger.Logger, db *sqlx.DB, processedMarker processedMarker) *Repository {
	return &Repository{
		log:             log,
		db:              db,
		processedMarker: processedMarker,
	}
}

// CreateProcessed records the notification and the ledger row atomically.
func (nr *Repository) CreateProcessed(ctx context.Context, notification *models.Notification, eventID, eventType string) (err error) {
	const op = "repository.notification.CreateProcessed"

	tx, err := nr.db.BeginTxx(ctx, nil)
	if err != nil {
		nr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	const query = `INSERT INTO "notifications" (order_uuid, user_uuid, message) VALUES ($1, $2, $3)`

	if _, err = tx.ExecContext(ctx, query,
		notification.OrderUUID, notification.UserUUID, notification.Message,
	); err != nil {
		nr.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	if err = nr.processedMarker.MarkProcessed(ctx, tx, eventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}
