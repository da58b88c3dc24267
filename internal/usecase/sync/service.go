package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/searchtext"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

const (
	defaultBatchSize = 100
	defaultWorkers   = 4
)

// Report summarizes a full sync run.
type Report struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Stats describes the index state relative to the catalog.
type Stats struct {
	IndexedCount int    `json:"indexed_products"`
	CatalogCount int    `json:"catalog_products"`
	Status       string `json:"sync_status"` // "synced" / "out_of_sync"
	Model        string `json:"model"`
}

// Service keeps the vector index consistent with the product catalog.
type Service struct {
	catalog Catalog
	index   Index
	embed   Embedder

	model     string
	batchSize int
	workers   int

	mu stdsync.Mutex // serializes full syncs
}

// Option configures the sync service.
type Option func(*Service)

// WithBatchSize overrides the bulk upsert batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWorkers overrides the embedding concurrency limit.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a sync service. model is reported in Stats only.
func New(catalog Catalog, index Index, embed Embedder, model string, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		index:     index,
		embed:     embed,
		model:     model,
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FullSync rebuilds the vector index from the catalog. The previous index
// contents are dropped first so deleted products cannot survive a rebuild.
// Concurrent calls are serialized.
func (s *Service) FullSync(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContext(ctx)

	if _, err := s.index.DeleteAll(ctx); err != nil {
		return Report{}, fmt.Errorf("clear index: %w", err)
	}

	products, err := s.catalog.FindAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load catalog: %w", err)
	}

	report := Report{Total: len(products)}
	if len(products) == 0 {
		return report, nil
	}

	var indexed, skipped, failed atomic.Int64

	for start := 0; start < len(products); start += s.batchSize {
		end := start + s.batchSize
		if end > len(products) {
			end = len(products)
		}
		batch := products[start:end]

		docs := make([]domain.IndexedDocument, len(batch))
		valid := make([]bool, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i, p := range batch {
			i, p := i, p
			g.Go(func() error {
				doc, err := s.buildDocument(gctx, p)
				if err != nil {
					if err == errNoText {
						skipped.Add(1)
						metrics.SyncedProductsTotal.WithLabelValues("skipped").Inc()
						return nil
					}
					// One bad product must not abort the run.
					failed.Add(1)
					metrics.SyncedProductsTotal.WithLabelValues("failed").Inc()
					log.Warn("sync: embed product failed",
						zap.String("product_id", p.ID),
						zap.Error(err),
					)
					return nil
				}
				docs[i] = doc
				valid[i] = true
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Report{}, err
		}

		upserts := docs[:0:0]
		for i, ok := range valid {
			if ok {
				upserts = append(upserts, docs[i])
			}
		}
		if len(upserts) == 0 {
			continue
		}
		if err := s.index.BulkUpsert(ctx, upserts); err != nil {
			return Report{}, fmt.Errorf("bulk upsert: %w", err)
		}
		indexed.Add(int64(len(upserts)))
		metrics.SyncedProductsTotal.WithLabelValues("indexed").Add(float64(len(upserts)))
	}

	report.Indexed = int(indexed.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())

	log.Info("full sync finished",
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("total", report.Total),
	)
	return report, nil
}

// SyncOne indexes a single product by id, replacing any existing entry.
func (s *Service) SyncOne(ctx context.Context, id string) error {
	product, err := s.catalog.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load product %q: %w", id, err)
	}

	doc, err := s.buildDocument(ctx, product)
	if err != nil {
		if err == errNoText {
			return fmt.Errorf("product %q: %w", id, domain.ErrNoSearchableContent)
		}
		return fmt.Errorf("embed product %q: %w", id, err)
	}

	if err := s.index.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert product %q: %w", id, err)
	}
	return nil
}

// DeleteOne removes a product from the index. Missing entries are not an error.
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	if err := s.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %q from index: %w", id, err)
	}
	return nil
}

// Stats reports index size against catalog size.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	indexed, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count index: %w", err)
	}
	total, err := s.catalog.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count catalog: %w", err)
	}

	status := "synced"
	if indexed != total {
		status = "out_of_sync"
	}
	return Stats{
		IndexedCount: indexed,
		CatalogCount: total,
		Status:       status,
		Model:        s.model,
	}, nil
}

var errNoText = fmt.Errorf("no searchable text")

func (s *Service) buildDocument(ctx context.Context, p domain.Product) (domain.IndexedDocument, error) {
	text := searchtext.Searchable(&p)
	if text == "" {
		return domain.IndexedDocument{}, errNoText
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return domain.IndexedDocument{}, err
	}

	return domain.IndexedDocument{
		ID:        p.ID,
		Text:      text,
		Embedding: res.Embedding,
		Metadata:  searchtext.Metadata(&p),
	}, nil
}
