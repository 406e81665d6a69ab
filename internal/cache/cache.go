package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

// CartCache holds a user's cart lines for display reads. Order placement
// never reads through the cache; the store stays authoritative.
type CartCache interface {
	Get(ctx context.Context, userID string) ([]*domain.CartLine, error)
	Set(ctx context.Context, userID string, lines []*domain.CartLine) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
