package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Payment struct {
	PaymentUUID uuid.UUID     `db:"uuid" json:"payment_uuid"`
	OrderUUID   uuid.UUID     `db:"order_uuid" json:"order_uuid"`
	EventID     string        `db:"event_id" json:"event_id"`
	Amount      float64       `db:"amount" json:"amount"`
	Status      PaymentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
