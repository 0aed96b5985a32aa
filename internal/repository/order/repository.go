package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/internal/outbox"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type outBoxRepository interface {
	InsertTx(ctx context.Context, ext sqlx.ExtContext, entry outbox.Entry) error
}

type processedMarker interface {
	MarkProcessed(ctx context.Context, ext sqlx.ExtContext, eventID, eventType string) error
}

type Repository struct {
	log logger.Logger
	db  *sqlx.DB

	outBoxRepository outBoxRepository
	processedMarker  processedMarker
}

func NewOrderRepository(
	log logger.Logger,
	db *sqlx.DB,
	outBoxRepository outBoxRepository,
	processedMarker processedMarker,
) *Repository {
	return &Repository{
		log:              log,
		db:               db,
		outBoxRepository: outBoxRepository,
		processedMarker:  processedMarker,
	}
}

// Create persists the order, its items and the announcing outbox entry in
// one transaction. Either all three exist afterwards or none do.
func (or *Repository) Create(ctx context.Context, order *models.Order, entry outbox.Entry) (err error) {
	const op = "repository.order.Create"

	tx, err := or.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				or.log.Error(op, logger.String("error", rollBackErr.Error()))
				err = errors.Join(err, fmt.Errorf("%s: rollback transaction: %w", op, rollBackErr))
			}
		}
	}()

	const orderQuery = `INSERT INTO "order" (uuid, user_uuid, status, total_amount) VALUES ($1, $2, $3, $4)`

	if _, err = tx.ExecContext(ctx, orderQuery,
		order.OrderUUID, order.UserUUID, order.Status, order.TotalAmount,
	); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: order execute statement: %w", op, err)
	}

	const orderItemsQuery = `INSERT INTO "order_items" (order_uuid, product_uuid, quantity, unit_price) VALUES %s`
	var values []interface{}
	var placeholders []string

	for i, item := range order.Items {
		values = append(values, order.OrderUUID, item.ProductUUID, item.Quantity, item.UnitPrice)

		argID := i * 4

		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)", argID+1, argID+2, argID+3, argID+4))
	}

	fullQuery := fmt.Sprintf(orderItemsQuery, strings.Join(placeholders, ","))

	if _, err = tx.ExecContext(ctx, fullQuery, values...); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: order_items execute statement: %w", op, err)
	}

	if err = or.outBoxRepository.InsertTx(ctx, tx, entry); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: outbox insert error: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}

// UpdateStatusProcessed transitions the order status and records the event
// in the idempotency ledger within one transaction, so a processed effect
// without a ledger row (or the reverse) can never be observed.
func (or *Repository) UpdateStatusProcessed(
	ctx context.Context,
	orderUUID uuid.UUID,
	status models.OrderStatus,
	eventID, eventType string,
) (err error) {
	const op = "repository.order.UpdateStatusProcessed"

	tx, err := or.db.BeginTxx(ctx, nil)
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	const statusQuery = `UPDATE "order" SET status = $1 WHERE uuid = $2`

	res, err := tx.ExecContext(ctx, statusQuery, status, orderUUID)
	if err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: execute statement: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, internalErrors.ErrOrderNotFound)
	}

	if err = or.processedMarker.MarkProcessed(ctx, tx, eventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

func (or *Repository) Order(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error) {
	const op = "repository.order.Order"

	const orderQuery = `
		SELECT o.uuid, o.user_uuid, o.status, o.total_amount, o.created_at
			FROM "order" o
			WHERE o.uuid = $1
	`

	var order models.Order
	if err := or.db.GetContext(ctx, &order, orderQuery, orderUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalErrors.ErrOrderNotFound
		}
		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}

	const orderItemsQuery = `
		SELECT oi.order_uuid, oi.product_uuid, oi.quantity, oi.unit_price
			FROM "order_items" oi
			WHERE oi.order_uuid = $1
	`

	if err := or.db.SelectContext(ctx, &order.Items, orderItemsQuery, orderUUID); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return &order, nil
}

func (or *Repository) Status(ctx context.Context, orderUUID uuid.UUID) (models.OrderStatus, error) {
	const op = "repository.order.Status"

	const query = `SELECT o.status FROM "order" o WHERE o.uuid = $1`

	var status models.OrderStatus
	if err := or.db.GetContext(ctx, &status, query, orderUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", internalErrors.ErrOrderNotFound
		}
		or.log.Error(op, logger.String("error", err.Error()))
		return "", fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return status, nil
}

func (or *Repository) OrdersByUserUUID(ctx context.Context, userUUID uuid.UUID) ([]models.Order, error) {
	const op = "repository.order.OrdersByUserUUID"

	const query = `
		SELECT o.uuid, o.user_uuid, o.status, o.total_amount, o.created_at
			FROM "order" o
			WHERE o.user_uuid = $1
			ORDER BY o.created_at DESC
	`

	var orders []models.Order
	if err := or.db.SelectContext(ctx, &orders, query, userUUID); err != nil {
		or.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return orders, nil
}
