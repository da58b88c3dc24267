package sync

import (
	"context"
	"errors"
	"strings"
	stdsync "sync"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// --- Mocks ---

type mockCatalog struct {
	products []domain.Product
	byID     map[string]domain.Product
	err      error
}

func (m *mockCatalog) FindByID(_ context.Context, id string) (domain.Product, error) {
	if m.err != nil {
		return domain.Product{}, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) FindAll(_ context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

func (m *mockCatalog) Count(_ context.Context) (int, error) {
	return len(m.products), m.err
}

type mockIndex struct {
	mu         stdsync.Mutex
	docs       map[string]domain.IndexedDocument
	deleteAll  int
	upsertErr  error
	deleteErr  error
	counterErr error
}

func newMockIndex() *mockIndex {
	return &mockIndex{docs: make(map[string]domain.IndexedDocument)}
}

func (m *mockIndex) Upsert(_ context.Context, doc domain.IndexedDocument) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockIndex) BulkUpsert(_ context.Context, docs []domain.IndexedDocument) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *mockIndex) Delete(_ context.Context, ids ...string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

func (m *mockIndex) DeleteAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.docs)
	m.docs = make(map[string]domain.IndexedDocument)
	m.deleteAll++
	return n, nil
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	if m.counterErr != nil {
		return 0, m.counterErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

type mockEmbedder struct {
	mu      stdsync.Mutex
	calls   int
	failIDs map[string]bool // fail when text contains the key
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	for frag := range m.failIDs {
		if frag != "" && strings.Contains(text, frag) {
			return domain.EmbeddingResult{}, errors.New("embed failed")
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

func catalogOf(products ...domain.Product) *mockCatalog {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockCatalog{products: products, byID: byID}
}

// --- Tests ---

func TestFullSync_IndexesAll(t *testing.T) {
	catalog := catalogOf(
		domain.Product{ID: "p1", Name: "Lip Balm"},
		domain.Product{ID: "p2", Name: "Soap"},
		domain.Product{ID: "p3", Name: "Shampoo"},
	)
	index := newMockIndex()
	svc := New(catalog, index, &mockEmbedder{}, "test-model")

	report, err := svc.FullSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Indexed != 3 || report.Total != 3 {
		t.Errorf("report = %+v, want 3 indexed of 3", report)
	}
	if len(index.docs) != 3 {
		t.Errorf("index holds %d docs, want 3", len(index.docs))
	}
	if index.deleteAll != 1 {
		t.Error("full sync must clear the index first")
	}
}

func TestFullSync_SkipsEmptyProducts(t *testing.T) {
	catalog := catalogOf(
		domain.Product{ID: "p1", Name: "Soap"},
		domain.Product{ID: "p2"}, // nothing searchable
	)
	index := newMockIndex()
	svc := New(catalog, index, &mockEmbedder{}, "test-model")

	report, err := svc.FullSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Indexed != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 1 indexed 1 skipped", report)
	}
	if _, ok := index.docs["p2"]; ok {
		t.Error("empty product must not be indexed")
	}
}

func TestFullSync_EmbedFailureIsPerItem(t *testing.T) {
	catalog := catalogOf(
		domain.Product{ID: "p1", Name: "Soap"},
		domain.Product{ID: "p2", Name: "Brokenitem"},
		domain.Product{ID: "p3", Name: "Shampoo"},
	)
	index := newMockIndex()
	embed := &mockEmbedder{failIDs: map[string]bool{"brokenitem": true}}
	svc := New(catalog, index, embed, "test-model")

	report, err := svc.FullSync(context.Background())
	if err != nil {
		t.Fatalf("one bad product must not abort the run: %v", err)
	}
	if report.Indexed != 2 || report.Failed != 1 {
		t.Errorf("report = %+v, want 2 indexed 1 failed", report)
	}
}

func TestFullSync_ReplacesPreviousIndex(t *testing.T) {
	catalog := catalogOf(domain.Product{ID: "p1", Name: "Soap"})
	index := newMockIndex()
	index.docs["stale"] = domain.IndexedDocument{ID: "stale"}
	svc := New(catalog, index, &mockEmbedder{}, "test-model")

	if _, err := svc.FullSync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := index.docs["stale"]; ok {
		t.Error("stale entries must not survive a full sync")
	}
	if _, ok := index.docs["p1"]; !ok {
		t.Error("p1 missing after sync")
	}
}

func TestFullSync_BatchesLargeCatalogs(t *testing.T) {
	products := make([]domain.Product, 0, 7)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		products = append(products, domain.Product{ID: id, Name: "Item " + id})
	}
	index := newMockIndex()
	embed := &mockEmbedder{}
	svc := New(catalogOf(products...), index, embed, "test-model",
		WithBatchSize(3), WithWorkers(2))

	report, err := svc.FullSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Indexed != 7 {
		t.Errorf("indexed %d, want 7", report.Indexed)
	}
	if embed.calls != 7 {
		t.Errorf("embedder called %d times, want 7", embed.calls)
	}
}

func TestSyncOne(t *testing.T) {
	catalog := catalogOf(domain.Product{ID: "p1", Name: "Soap", Brand: "Dove"})
	index := newMockIndex()
	svc := New(catalog, index, &mockEmbedder{}, "test-model")

	if err := svc.SyncOne(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, ok := index.docs["p1"]
	if !ok {
		t.Fatal("p1 not indexed")
	}
	if doc.Metadata["brand"] != "Dove" {
		t.Errorf("metadata brand = %q, want Dove", doc.Metadata["brand"])
	}
}

func TestSyncOne_UnknownProduct(t *testing.T) {
	svc := New(catalogOf(), newMockIndex(), &mockEmbedder{}, "test-model")

	err := svc.SyncOne(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncOne_NoSearchableContent(t *testing.T) {
	catalog := catalogOf(domain.Product{ID: "empty"})
	svc := New(catalog, newMockIndex(), &mockEmbedder{}, "test-model")

	err := svc.SyncOne(context.Background(), "empty")
	if !errors.Is(err, domain.ErrNoSearchableContent) {
		t.Errorf("expected ErrNoSearchableContent, got %v", err)
	}
}

func TestDeleteOne_Idempotent(t *testing.T) {
	index := newMockIndex()
	svc := New(catalogOf(), index, &mockEmbedder{}, "test-model")

	if err := svc.DeleteOne(context.Background(), "missing"); err != nil {
		t.Errorf("deleting an absent entry must not fail: %v", err)
	}
}

func TestStats(t *testing.T) {
	catalog := catalogOf(
		domain.Product{ID: "p1", Name: "Soap"},
		domain.Product{ID: "p2", Name: "Balm"},
	)
	index := newMockIndex()
	index.docs["p1"] = domain.IndexedDocument{ID: "p1"}
	svc := New(catalog, index, &mockEmbedder{}, "test-model")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Status != "out_of_sync" {
		t.Errorf("status = %q, want out_of_sync", stats.Status)
	}
	if stats.IndexedCount != 1 || stats.CatalogCount != 2 {
		t.Errorf("counts = %d/%d, want 1/2", stats.IndexedCount, stats.CatalogCount)
	}
	if stats.Model != "test-model" {
		t.Errorf("model = %q", stats.Model)
	}

	index.docs["p2"] = domain.IndexedDocument{ID: "p2"}
	stats, err = svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Status != "synced" {
		t.Errorf("status = %q, want synced", stats.Status)
	}
}
