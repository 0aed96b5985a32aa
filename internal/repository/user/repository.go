package user

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

type Repository struct {
	log logger.Logger
	db  *sqlx.DB
}

func NewUserRepository(log logger.Logger, db *sqlx.DB) *Repository {
	return &Repository{log: log, db: db}
}

func (ur *Repository) User(ctx context.Context, userUUID uuid.UUID) (*models.User, error) {
	const op = "repository.user.User"

	const query = `SELECT uuid, email, name, created_at FROM "users" WHERE uuid = $1`

	var user models.User
	if err := ur.db.GetContext(ctx, &user, query, userUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalErrors.ErrUserNotFound
		}
		ur.log.Error(op, logger.String("error", err.Error()))
		return nil, fmt.Errorf("%s: execute statement: %w", op, err)
	}

	return &user, nil
}
