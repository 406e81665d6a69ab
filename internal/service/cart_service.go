package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/store"
	"golang.org/x/sync/singleflight"
)

// CartService tracks the mutable working set of items a user intends to
// purchase. Display reads go through the cache when one is configured;
// every mutation invalidates it.
type CartService struct {
	store   store.CartStore
	catalog store.CatalogStore
	cache   cache.CartCache    // nil when no cache is configured
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(st store.CartStore, catalog store.CatalogStore, c cache.CartCache) *CartService {
	return &CartService{
		store:   st,
		catalog: catalog,
		cache:   c,
	}
}

// ListLines returns the user's cart lines in creation order.
func (s *CartService) ListLines(ctx context.Context, userID string) ([]*domain.CartLine, error) {
	if s.cache == nil {
		return s.store.ListLines(ctx, userID)
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		lines, err := s.cache.Get(ctx, userID)
		if err == nil {
			return lines, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		lines, errList := s.store.ListLines(ctx, userID)
		if errList != nil {
			return nil, errList
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, lines); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return lines, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]*domain.CartLine), nil
}

// AddItem upserts the (userID, productID) line: +1 on the existing quantity
// or a fresh line with quantity 1.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64) (*domain.CartLine, error) {
	line, err := s.store.AddLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return line, nil
}

// SetQuantity overwrites the line's quantity; zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	if err := s.store.SetQuantity(ctx, userID, lineID, quantity); err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID, lineID string) error {
	if err := s.store.RemoveLine(ctx, userID, lineID); err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// ViewLine is a cart line hydrated with its product for display.
type ViewLine struct {
	Line     *domain.CartLine
	Product  *domain.Product // nil when the product no longer resolves
	Subtotal int64
}

// View is the rendered cart: hydrated lines plus a running total. The total
// is a display aggregate; a line whose product cannot be resolved
// contributes zero instead of failing the whole view.
type View struct {
	Lines []ViewLine
	Total int64
}

func (s *CartService) View(ctx context.Context, userID string) (*View, error) {
	lines, err := s.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{Lines: make([]ViewLine, 0, len(lines))}
	for _, l := range lines {
		vl := ViewLine{Line: l}
		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if errors.Is(err, store.ErrProductNotFound) {
			view.Lines = append(view.Lines, vl)
			continue
		}
		if err != nil {
			return nil, err
		}
		vl.Product = p
		vl.Subtotal = p.Price * int64(l.Quantity)
		view.Total += vl.Subtotal
		view.Lines = append(view.Lines, vl)
	}
	return view, nil
}

// Total sums price * quantity over the current cart lines.
func (s *CartService) Total(ctx context.Context, userID string) (int64, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return 0, err
	}
	return view.Total, nil
}

func (s *CartService) invalidateCache(userID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
