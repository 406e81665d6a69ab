package store

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrNotLineOwner    = errors.New("cart line belongs to another user")
	ErrOrderNotFound   = errors.New("order not found")
)

// OutboxEvent is a pending domain event written in the same transaction as
// the aggregate it describes, published to the broker by the outbox poller.
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// CatalogStore is read-only product reference data.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)

	// GetProduct returns ErrProductNotFound when the id does not resolve.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CartStore tracks the mutable working set of items a user intends to buy.
type CartStore interface {
	// ListLines returns the user's cart lines ordered by creation time.
	ListLines(ctx context.Context, userID string) ([]*domain.CartLine, error)

	// AddLine increments the quantity of the existing (userID, productID)
	// line by one, or creates it with quantity 1. Returns the resulting line.
	AddLine(ctx context.Context, userID string, productID int64) (*domain.CartLine, error)

	// SetQuantity overwrites the line's quantity, deleting the line when
	// quantity <= 0. Returns ErrLineNotFound for an unknown line and
	// ErrNotLineOwner when the line belongs to someone else.
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) error

	// RemoveLine deletes the line. A missing line is a no-op; a line owned
	// by another user is rejected with ErrNotLineOwner.
	RemoveLine(ctx context.Context, userID, lineID string) error

	// Clear deletes all of the user's cart lines.
	Clear(ctx context.Context, userID string) error
}

// OrderStore owns the immutable Order aggregate.
type OrderStore interface {
	// CreateOrder persists the order, its lines and an order.placed outbox
	// event atomically. Readers never observe a partial aggregate.
	CreateOrder(ctx context.Context, order *domain.Order) error

	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)

	// DeleteOrder removes the whole aggregate, lines included.
	DeleteOrder(ctx context.Context, userID, orderID string) error
}

// OutboxStore exposes pending order events to the publisher.
type OutboxStore interface {
	UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id string) error
}

// Store is the full backing-store contract. Exactly one implementation is
// selected at startup; there is no runtime fallback between backends.
type Store interface {
	CatalogStore
	CartStore
	OrderStore
	OutboxStore
	Close() error
}
