package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        int       `db:"id" json:"id"`
	OrderUUID uuid.UUID `db:"order_uuid" json:"order_uuid"`
	UserUUID  uuid.UUID `db:"user_uuid" json:"user_uuid"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
