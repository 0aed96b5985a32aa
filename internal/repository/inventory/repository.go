package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

// InsufficientStockError names the first line item that cannot be covered.
// Its message is carried verbatim as the reason of the compensating
// inventory.reservation_failed event.
type InsufficientStockError struct {
	ProductUUID uuid.UUID
	Need        int
	Have        int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s: need %d, have %d", e.ProductUUID, e.Need, e.Have)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == internalErrors.ErrInsufficientStock
}

type ReserveItem struct {
	ProductUUID uuid.UUID
	Quantity    int
}

type processedMarker interface {
	MarkProcessed(ctx context.Context, ext sqlx.ExtContext, eventID, eventType string) error
}

type Repository struct {
	log logger.Logger
	db  *sqlx.DB

	processedMarker processedMarker
}

func NewInventoryRepository(log logger.Logger, db *sqlx.DB, processedMarker processedMarker) *Repository {
	return &Repository{
		log:             log,
		db:              db,
		processedMarker: processedMarker,
	}
}

// Reserve withholds stock for every line item of an order, or none of
// them. Product rows are locked for the duration of the transaction; the
// ledger row commits together with the stock decrements.
func (ir *Repository) Reserve(ctx context.Context, orderUUID uuid.UUID, items []ReserveItem, eventID string) (err error) {
	const op = "repository.inventory.Reserve"

	tx, err := ir.db.BeginTxx(ctx, nil)
	if err != nil {
		ir.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	const lockQuery = `SELECT stock FROM "products" WHERE uuid = $1 FOR UPDATE`
	const decrementQuery = `UPDATE "products" SET stock = stock - $1 WHERE uuid = $2`
	const reservationQuery = `
		INSERT INTO "reservations" (order_uuid, product_uuid, quantity, event_id)
		VALUES ($1, $2, $3, $4)
	`

	for _, item := range items {
		var stock int
		if err = tx.GetContext(ctx, &stock, lockQuery, item.ProductUUID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = fmt.Errorf("product %s: %w", item.ProductUUID, internalErrors.ErrProductNotFound)
				return err
			}
			ir.log.Error(op, logger.String("error", err.Error()))
			return fmt.Errorf("%s: lock product: %w", op, err)
		}

		if stock < item.Quantity {
			err = &InsufficientStockError{ProductUUID: item.ProductUUID, Need: item.Quantity, Have: stock}
			return err
		}

		if _, err = tx.ExecContext(ctx, decrementQuery, item.Quantity, item.ProductUUID); err != nil {
			ir.log.Error(op, logger.String("error", err.Error()))
			return fmt.Errorf("%s: decrement stock: %w", op, err)
		}

		if _, err = tx.ExecContext(ctx, reservationQuery, orderUUID, item.ProductUUID, item.Quantity, eventID); err != nil {
			ir.log.Error(op, logger.String("error", err.Error()))
			return fmt.Errorf("%s: insert reservation: %w", op, err)
		}
	}

	if err = ir.processedMarker.MarkProcessed(ctx, tx, eventID, "order.created"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

// ReleaseByOrderUUID is the compensation for Reserve: restores every
// reserved quantity, deletes the reservation rows and records the derived
// release event id, all atomically. Safe to call when nothing is reserved.
func (ir *Repository) ReleaseByOrderUUID(ctx context.Context, orderUUID uuid.UUID, releaseEventID, eventType string) (err error) {
	const op = "repository.inventory.ReleaseByOrderUUID"

	tx, err := ir.db.BeginTxx(ctx, nil)
	if err != nil {
		ir.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rollBackErr := tx.Rollback(); rollBackErr != nil {
				err = errors.Join(err, rollBackErr)
			}
		}
	}()

	const reservationsQuery = `
		SELECT id, order_uuid, product_uuid, quantity, event_id, created_at
			FROM "reservations"
			WHERE order_uuid = $1
			FOR UPDATE
	`

	var reservations []models.Reservation
	if err = tx.SelectContext(ctx, &reservations, reservationsQuery, orderUUID); err != nil {
		ir.log.Error(op, logger.String("error", err.Error()))
		return fmt.Errorf("%s: select reservations: %w", op, err)
	}

	const restoreQuery = `UPDATE "products" SET stock = stock + $1 WHERE uuid = $2`
	const deleteQuery = `DELETE FROM "reservations" WHERE id = $1`

	for _, reservation := range reservations {
		if _, err = tx.ExecContext(ctx, restoreQuery, reservation.Quantity, reservation.ProductUUID); err != nil {
			ir.log.Error(op, logger.String("error", err.Error()))
			return fmt.Errorf("%s: restore stock: %w", op, err)
		}

		if _, err = tx.ExecContext(ctx, deleteQuery, reservation.ID); err != nil {
			ir.log.Error(op, logger.String("error", err.Error()))
			return fmt.Errorf("%s: delete reservation: %w", op, err)
		}
	}

	if err = ir.processedMarker.MarkProcessed(ctx, tx, releaseEventID, eventType); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return tx.Commit()
}

func (ir *Repository) Product(ctx context.Context, productUUID uuid.UUID) (*models.Product, error) {
	const op = "repository.inventory.Product"

	const query = `SELECT uuid, name, price, stock FROM "products" WHERE uuid = $1`

	var product models.Product
	if err := ir.db.GetContext(ctx, &product, query, productUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalErrors.ErrProductNotFound
		}
		ir.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return &product, nil
}
