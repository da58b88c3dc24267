package search

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
)

// Index runs KNN queries against the vector index.
type Index interface {
	Query(ctx context.Context, vector []float32, k int, filters search.Filters) ([]search.Hit, error)
}

// Catalog resolves products by id.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
