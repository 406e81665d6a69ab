package domain

import "time"

// CartLine is one (user, product) row in the working cart.
// At most one line exists per (UserID, ProductID) pair; quantity
// changes update the line in place instead of appending a new one.
type CartLine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
