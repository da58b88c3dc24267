package sync

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// Catalog reads products from the product store.
type Catalog interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)
}

// Index writes indexed documents to the vector index.
type Index interface {
	Upsert(ctx context.Context, doc domain.IndexedDocument) error
	BulkUpsert(ctx context.Context, docs []domain.IndexedDocument) error
	Delete(ctx context.Context, ids ...string) error
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
