package chi

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
)

// CatalogReader runs keyword fallback queries against the product store.
type CatalogReader interface {
	Find(ctx context.Context, query string, filters search.Filters, skip, limit int) ([]domain.Product, int, error)
}

// CatalogWriter persists products to the product store.
type CatalogWriter interface {
	Save(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
}
