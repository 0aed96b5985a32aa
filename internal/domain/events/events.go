package events

// Type enumerates the saga events carried over the bus. Consumers select
// their handler by Type, never by matching routing key strings inline.
type Type int

const (
	UnknownType Type = iota
	OrderCreated
	PaymentCompleted
	PaymentFailed
	InventoryReserved
	InventoryReservationFailed
)

const (
	OrderCreatedKey               = "order.created"
	PaymentCompletedKey           = "payment.completed"
	PaymentFailedKey              = "payment.failed"
	InventoryReservedKey          = "inventory.reserved"
	InventoryReservationFailedKey = "inventory.reservation_failed"
)

var typesByKey = map[string]Type{
	OrderCreatedKey:               OrderCreated,
	PaymentCompletedKey:           PaymentCompleted,
	PaymentFailedKey:              PaymentFailed,
	InventoryReservedKey:          InventoryReserved,
	InventoryReservationFailedKey: InventoryReservationFailed,
}

func TypeFromRoutingKey(key string) (Type, bool) {
	t, ok := typesByKey[key]
	return t, ok
}

type OrderItemPayload struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type OrderCreatedPayload struct {
	EventID     string             `json:"eventId"`
	OrderID     string             `json:"orderId"`
	UserID      string             `json:"userId"`
	TotalAmount float64            `json:"totalAmount"`
	Items       []OrderItemPayload `json:"items"`
	CreatedAt   string             `json:"createdAt"`
}

type PaymentCompletedPayload struct {
	EventID   string  `json:"eventId"`
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

type PaymentFailedPayload struct {
	EventID string `json:"eventId"`
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type ReservedItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type InventoryReservedPayload struct {
	EventID string                `json:"eventId"`
	OrderID string                `json:"orderId"`
	Items   []ReservedItemPayload `json:"items"`
}

type InventoryReservationFailedPayload struct {
	EventID string `json:"eventId"`
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}
