package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// OrderService turns a mutable cart into an immutable order.
//
// The placement workflow runs VALIDATING -> CREATING -> FINALIZING ->
// COMPLETED. The order aggregate commits atomically during CREATING; the
// cart clear in FINALIZING is best-effort sequential: a clear failure is
// logged and the committed order stands. There is no distributed
// transaction across the two steps.
type OrderService struct {
	orders  store.OrderStore
	cart    store.CartStore
	catalog store.CatalogStore
	cache   cache.CartCache // nil when no cache is configured

	// sfg coalesces concurrent submissions per user, so a double-submit
	// cannot mint two orders from one cart read.
	sfg      singleflight.Group
	currency string
}

func NewOrderService(orders store.OrderStore, cart store.CartStore, catalog store.CatalogStore, c cache.CartCache) *OrderService {
	return &OrderService{
		orders:   orders,
		cart:     cart,
		catalog:  catalog,
		cache:    c,
		currency: "JPY",
	}
}

// PlaceOrder snapshots the user's cart into a new immutable order and
// clears the cart. Returns ErrEmptyCart when there is nothing to order and
// ErrOrderCreationFailed when the store rejects the aggregate; in the
// latter case the cart is left untouched.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		return s.placeOrder(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID string) (*domain.Order, error) {
	status := domain.PlacementStatusValidating

	// the cart store is read directly, never through the display cache
	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		s.fail(&status, userID, err)
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		s.fail(&status, userID, ErrEmptyCart)
		return nil, ErrEmptyCart
	}

	if err := transition(&status, domain.PlacementStatusCreating); err != nil {
		return nil, err
	}

	order, err := s.buildOrder(ctx, userID, lines)
	if err != nil {
		s.fail(&status, userID, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.fail(&status, userID, err)
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	// The order is the system of record from here on. Finalize trouble is
	// logged, never rolled back into the committed aggregate.
	if err := transition(&status, domain.PlacementStatusFinalizing); err != nil {
		log.Printf("placement for user %s: %v", userID, err)
	}
	if err := s.cart.Clear(ctx, userID); err != nil {
		log.Printf("order %s: cart clear failed for user %s, cart may still hold ordered lines: %v",
			order.ID, userID, err)
	}
	s.invalidateCache(userID)

	if err := transition(&status, domain.PlacementStatusCompleted); err != nil {
		log.Printf("placement for user %s: %v", userID, err)
	}
	log.Printf("order %s placed for user %s, %d lines, total %d %s",
		order.ID, userID, len(order.Lines), order.TotalAmount, order.Currency)
	return order, nil
}

// buildOrder resolves the live catalog price of every cart line and fixes
// it into PriceAtOrder, decoupling the order from future price changes.
func (s *OrderService) buildOrder(ctx context.Context, userID string, lines []*domain.CartLine) (*domain.Order, error) {
	order := &domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Currency:  s.currency,
		Status:    domain.OrderStatusConfirmed,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
		CreatedAt: time.Now().UTC(),
	}

	for _, l := range lines {
		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %d: %w", l.ProductID, err)
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID:    l.ProductID,
			ProductName:  p.Name,
			Quantity:     l.Quantity,
			PriceAtOrder: p.Price,
		})
		order.TotalAmount += p.Price * int64(l.Quantity)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, userID, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, userID)
}

// DeleteOrder removes the whole aggregate. Orders carry no update path;
// deletion is the only allowed mutation.
func (s *OrderService) DeleteOrder(ctx context.Context, userID, orderID string) error {
	return s.orders.DeleteOrder(ctx, userID, orderID)
}

func (s *OrderService) fail(status *domain.PlacementStatus, userID string, cause error) {
	from := *status
	if err := transition(status, domain.PlacementStatusFailed); err != nil {
		log.Printf("placement for user %s: %v", userID, err)
		return
	}
	log.Printf("placement for user %s failed while %s: %v", userID, from, cause)
}

func transition(status *domain.PlacementStatus, next domain.PlacementStatus) error {
	if !domain.CanTransitionTo(*status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, *status, next)
	}
	*status = next
	return nil
}

func (s *OrderService) invalidateCache(userID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
