package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusShipped       OrderStatus = "shipped"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

type Order struct {
	OrderUUID   uuid.UUID   `db:"uuid" json:"order_uuid"`
	UserUUID    uuid.UUID   `db:"user_uuid" json:"user_uuid"`
	Status      OrderStatus `db:"status" json:"status"`
	TotalAmount float64     `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	Items       []OrderItem `json:"items"`
}

type OrderItem struct {
	OrderUUID   uuid.UUID `db:"order_uuid" json:"order_uuid"`
	ProductUUID uuid.UUID `db:"product_uuid" json:"product_uuid"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
}
