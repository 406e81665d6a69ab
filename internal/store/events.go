package store

import (
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

// EventTypeOrderPlaced is written to the outbox in the same transaction as
// the order aggregate it announces.
const EventTypeOrderPlaced = "order.placed"

type orderPlacedLine struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
}

type orderPlaced struct {
	OrderID     string            `json:"order_id"`
	UserID      string            `json:"user_id"`
	TotalAmount int64             `json:"total_amount"`
	Currency    string            `json:"currency"`
	Lines       []orderPlacedLine `json:"lines"`
	PlacedAt    time.Time         `json:"placed_at"`
}

func orderPlacedPayload(o *domain.Order) orderPlaced {
	lines := make([]orderPlacedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderPlacedLine{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			PriceAtOrder: l.PriceAtOrder,
		})
	}
	return orderPlaced{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Lines:       lines,
		PlacedAt:    o.CreatedAt,
	}
}
