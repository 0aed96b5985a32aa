package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	UserUUID  uuid.UUID `db:"uuid" json:"user_uuid"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
