package domain

import "time"

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
)

// OrderLine carries the price snapshot taken when the order was placed.
// PriceAtOrder never changes afterwards, no matter what happens to the
// catalog price.
type OrderLine struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
}

// Order is immutable once created. There is no update path, only
// delete-whole-order.
type Order struct {
	ID          string
	UserID      string
	TotalAmount int64
	Currency    string
	Status      OrderStatus
	Lines       []OrderLine
	CreatedAt   time.Time
}
