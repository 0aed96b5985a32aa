package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ProductUUID uuid.UUID `db:"uuid" json:"product_uuid"`
	Name        string    `db:"name" json:"name"`
	Price       float64   `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
}

// Reservation is stock withheld for an order between inventory.reserved
// and either order confirmation or compensation.
type Reservation struct {
	ID          int       `db:"id" json:"id"`
	OrderUUID   uuid.UUID `db:"order_uuid" json:"order_uuid"`
	ProductUUID uuid.UUID `db:"product_uuid" json:"product_uuid"`
	Quantity    int       `db:"quantity" json:"quantity"`
	EventID     string    `db:"event_id" json:"event_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
