package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placementFixture() (*mockOrderStore, *mockCartStore, *mockCatalogStore) {
	orders := &mockOrderStore{}
	cart := &mockCartStore{
		lines: []*domain.CartLine{
			{ID: "line-1", UserID: "demo-user", ProductID: 1, Quantity: 2},
			{ID: "line-2", UserID: "demo-user", ProductID: 3, Quantity: 1},
		},
	}
	catalog := &mockCatalogStore{
		products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Colorful Mug", Price: 1200},
			3: {ID: 3, Name: "Sticker Set", Price: 500},
		},
	}
	return orders, cart, catalog
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	orders, cart, catalog := placementFixture()
	cart.lines = nil
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, order)
	assert.Empty(t, orders.createdOrders(), "empty cart must never create an order")
	assert.Zero(t, cart.clears())
}

func TestPlaceOrder_SnapshotsCartIntoOrder(t *testing.T) {
	orders, cart, catalog := placementFixture()
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, "JPY", order.Currency)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(1), order.Lines[0].ProductID)
	assert.Equal(t, "Colorful Mug", order.Lines[0].ProductName)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, int64(1200), order.Lines[0].PriceAtOrder)
	assert.Equal(t, int64(500), order.Lines[1].PriceAtOrder)
	assert.Equal(t, int64(2900), order.TotalAmount)

	require.Len(t, orders.createdOrders(), 1)
	assert.Empty(t, cart.currentLines(), "cart must be empty after successful placement")
}

func TestPlaceOrder_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	orders, cart, catalog := placementFixture()
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")
	require.NoError(t, err)

	catalog.setPrice(1, 9999)

	stored, err := svc.GetOrder(context.Background(), "demo-user", order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), stored.Lines[0].PriceAtOrder,
		"a later catalog price change must not alter the snapshot")
	assert.Equal(t, int64(2900), stored.TotalAmount)
}

func TestPlaceOrder_CreateFails_CartUntouched(t *testing.T) {
	orders, cart, catalog := placementFixture()
	orders.createErr = errors.New("connection reset")
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")

	assert.ErrorIs(t, err, ErrOrderCreationFailed)
	assert.Nil(t, order)
	assert.Zero(t, cart.clears(), "cart must never be cleared unless creation committed")
	assert.Len(t, cart.currentLines(), 2)
}

func TestPlaceOrder_UnknownProduct_FailsCreation(t *testing.T) {
	orders, cart, catalog := placementFixture()
	delete(catalog.products, 3)
	svc := NewOrderService(orders, cart, catalog, nil)

	_, err := svc.PlaceOrder(context.Background(), "demo-user")

	assert.ErrorIs(t, err, ErrOrderCreationFailed)
	assert.Empty(t, orders.createdOrders())
	assert.Len(t, cart.currentLines(), 2)
}

func TestPlaceOrder_ReadCartError(t *testing.T) {
	orders, cart, catalog := placementFixture()
	cart.listErr = errors.New("connection reset")
	svc := NewOrderService(orders, cart, catalog, nil)

	_, err := svc.PlaceOrder(context.Background(), "demo-user")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read cart")
	assert.Empty(t, orders.createdOrders())
}

func TestPlaceOrder_ClearFails_OrderStands(t *testing.T) {
	orders, cart, catalog := placementFixture()
	cart.clearErr = errors.New("connection reset")
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")

	// clear failure is logged, the committed order is returned as success
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Len(t, orders.createdOrders(), 1)
	assert.Equal(t, 1, cart.clears())
	assert.Len(t, cart.currentLines(), 2, "failed clear leaves the cart as-is")
}

func TestPlaceOrder_ConcurrentSubmitsCoalesce(t *testing.T) {
	orders, cart, catalog := placementFixture()
	cart.listDelay = 50 * time.Millisecond
	svc := NewOrderService(orders, cart, catalog, nil)

	var wg sync.WaitGroup
	results := make([]*domain.Order, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.PlaceOrder(context.Background(), "demo-user")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Len(t, orders.createdOrders(), 1, "a double-submit must not mint two orders")
	assert.Equal(t, results[0].ID, results[1].ID)
}

func TestPlaceOrder_InvalidatesCartCache(t *testing.T) {
	orders, cart, catalog := placementFixture()
	c := newStubCache()
	c.data["demo-user"] = cart.lines
	svc := NewOrderService(orders, cart, catalog, c)

	_, err := svc.PlaceOrder(context.Background(), "demo-user")

	require.NoError(t, err)
	assert.Equal(t, 1, c.deleteCount())
}

func TestDeleteOrder_WholeAggregateOnly(t *testing.T) {
	orders, cart, catalog := placementFixture()
	svc := NewOrderService(orders, cart, catalog, nil)

	order, err := svc.PlaceOrder(context.Background(), "demo-user")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), "demo-user", order.ID))
	_, err = svc.GetOrder(context.Background(), "demo-user", order.ID)
	assert.Error(t, err)
}
