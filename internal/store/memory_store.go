package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore implements Store with in-memory storage. It backs tests and
// the STORE_BACKEND=memory mode; state is lost on process restart.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	lines    map[string][]*domain.CartLine // userID -> lines in creation order
	orders   []*domain.Order               // in creation order
	events   []*OutboxEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]*domain.Product),
		lines:    make(map[string][]*domain.CartLine),
	}
}

// PutProduct adds or replaces a catalog product (seed/test helper).
func (s *MemoryStore) PutProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.products[cp.ID] = &cp
}

// SeedDemoCatalog loads the same four products the SQL migrations seed.
func (s *MemoryStore) SeedDemoCatalog() {
	for _, p := range []*domain.Product{
		{ID: 1, Name: "Colorful Mug", Description: "Vivid colors to brighten your morning", Price: 1200},
		{ID: 2, Name: "Mini Notebook", Description: "A pocket-sized idea book", Price: 600},
		{ID: 3, Name: "Sticker Set", Description: "Six stickers to decorate your laptop", Price: 500},
		{ID: 4, Name: "Eco Tote Bag", Description: "Light, sturdy and washable", Price: 1800},
	} {
		s.PutProduct(p)
	}
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListLines(_ context.Context, userID string) ([]*domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := s.lines[userID]
	result := make([]*domain.CartLine, 0, len(lines))
	for _, l := range lines {
		cp := *l
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) AddLine(_ context.Context, userID string, productID int64) (*domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return nil, ErrProductNotFound
	}

	now := time.Now()
	for _, l := range s.lines[userID] {
		if l.ProductID == productID {
			l.Quantity++
			l.UpdatedAt = now
			cp := *l
			return &cp, nil
		}
	}

	line := &domain.CartLine{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.lines[userID] = append(s.lines[userID], line)
	cp := *line
	return &cp, nil
}

func (s *MemoryStore) SetQuantity(_ context.Context, userID, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx, ok := s.findLine(lineID)
	if !ok {
		return ErrLineNotFound
	}
	if owner != userID {
		return ErrNotLineOwner
	}

	if quantity <= 0 {
		s.lines[owner] = append(s.lines[owner][:idx], s.lines[owner][idx+1:]...)
		return nil
	}

	s.lines[owner][idx].Quantity = quantity
	s.lines[owner][idx].UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) RemoveLine(_ context.Context, userID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx, ok := s.findLine(lineID)
	if !ok {
		return nil // already gone
	}
	if owner != userID {
		return ErrNotLineOwner
	}

	s.lines[owner] = append(s.lines[owner][:idx], s.lines[owner][idx+1:]...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lines, userID)
	return nil
}

// findLine locates a line by id across all users. Caller must hold the lock.
func (s *MemoryStore) findLine(lineID string) (userID string, idx int, ok bool) {
	for uid, lines := range s.lines {
		for i, l := range lines {
			if l.ID == lineID {
				return uid, i, true
			}
		}
	}
	return "", 0, false
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == order.ID {
			return fmt.Errorf("order %s already exists", order.ID)
		}
	}

	cp := *order
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.orders = append(s.orders, &cp)

	payload, err := json.Marshal(orderPlacedPayload(&cp))
	if err != nil {
		// roll the order back, the aggregate commits as a whole
		s.orders = s.orders[:len(s.orders)-1]
		return fmt.Errorf("marshal order event payload: %w", err)
	}
	s.events = append(s.events, &OutboxEvent{
		ID:          uuid.New().String(),
		AggregateID: cp.ID,
		EventType:   EventTypeOrderPlaced,
		Payload:     payload,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, userID, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.ID == orderID && o.UserID == userID {
			cp := *o
			cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *MemoryStore) ListOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for i := len(s.orders) - 1; i >= 0; i-- { // newest first
		if s.orders[i].UserID != userID {
			continue
		}
		cp := *s.orders[i]
		cp.Lines = append([]domain.OrderLine(nil), s.orders[i].Lines...)
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, userID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.orders {
		if o.ID == orderID && o.UserID == userID {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return nil
		}
	}
	return ErrOrderNotFound
}

func (s *MemoryStore) UnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*OutboxEvent
	for _, ev := range s.events {
		if ev.ProcessedAt != nil {
			continue
		}
		cp := *ev
		result = append(result, &cp)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkEventProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (s *MemoryStore) Close() error {
	return nil
}
