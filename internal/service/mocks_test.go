package service

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/store"
)

// mockCartStore implements store.CartStore for workflow tests
type mockCartStore struct {
	mu         sync.Mutex
	lines      []*domain.CartLine
	listErr    error
	clearErr   error
	listDelay  time.Duration // widens the race window for coalescing tests
	listCalls  int
	clearCalls int
}

func (m *mockCartStore) ListLines(_ context.Context, _ string) ([]*domain.CartLine, error) {
	m.mu.Lock()
	m.listCalls++
	err := m.listErr
	lines := make([]*domain.CartLine, 0, len(m.lines))
	for _, l := range m.lines {
		cp := *l
		lines = append(lines, &cp)
	}
	delay := m.listDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (m *mockCartStore) AddLine(_ context.Context, _ string, _ int64) (*domain.CartLine, error) {
	return nil, nil
}

func (m *mockCartStore) SetQuantity(_ context.Context, _, _ string, _ int) error {
	return nil
}

func (m *mockCartStore) RemoveLine(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockCartStore) Clear(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.lines = nil
	return nil
}

func (m *mockCartStore) currentLines() []*domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.CartLine(nil), m.lines...)
}

func (m *mockCartStore) clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCalls
}

// mockCatalogStore implements store.CatalogStore with a mutable price map
type mockCatalogStore struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
}

func (m *mockCatalogStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Product
	for _, p := range m.products {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockCatalogStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalogStore) setPrice(id int64, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Price = price
}

// mockOrderStore implements store.OrderStore and captures created orders
type mockOrderStore struct {
	mu        sync.Mutex
	created   []*domain.Order
	createErr error
}

func (m *mockOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, userID, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.created {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, store.ErrOrderNotFound
}

func (m *mockOrderStore) ListOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Order
	for i := len(m.created) - 1; i >= 0; i-- {
		if m.created[i].UserID == userID {
			result = append(result, m.created[i])
		}
	}
	return result, nil
}

func (m *mockOrderStore) DeleteOrder(_ context.Context, userID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.created {
		if o.ID == orderID && o.UserID == userID {
			m.created = append(m.created[:i], m.created[i+1:]...)
			return nil
		}
	}
	return store.ErrOrderNotFound
}

func (m *mockOrderStore) createdOrders() []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Order(nil), m.created...)
}

// stubCache implements cache.CartCache with an observable call log
type stubCache struct {
	mu      sync.Mutex
	data    map[string][]*domain.CartLine
	getErr  error
	deletes int
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]*domain.CartLine)}
}

func (c *stubCache) Get(_ context.Context, userID string) ([]*domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	lines, ok := c.data[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return lines, nil
}

func (c *stubCache) Set(_ context.Context, userID string, lines []*domain.CartLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[userID] = lines
	return nil
}

func (c *stubCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.data, userID)
	return nil
}

func (c *stubCache) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

func (c *stubCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
