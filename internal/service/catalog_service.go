package service

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/store"
)

// CatalogService is a read-only accessor over product reference data.
type CatalogService struct {
	catalog store.CatalogStore
}

func NewCatalogService(catalog store.CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.catalog.ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

// PriceOf returns the live catalog price. Each call hits the store so that
// price snapshots always reflect the catalog at the moment of purchase.
func (s *CatalogService) PriceOf(ctx context.Context, productID int64) (int64, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Price, nil
}
