package chi

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	domsearch "github.com/kailas-cloud/shopsearch/internal/domain/search"
	composeuc "github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
	syncuc "github.com/kailas-cloud/shopsearch/internal/usecase/sync"

	gochi "github.com/go-chi/chi/v5"
)

// --- Mocks ---

type mockIndex struct {
	mu   sync.Mutex
	hits []domsearch.Hit
	docs map[string]domain.IndexedDocument
	err  error
}

func newMockIndex() *mockIndex {
	return &mockIndex{docs: make(map[string]domain.IndexedDocument)}
}

func (m *mockIndex) Query(_ context.Context, _ []float32, _ int, _ domsearch.Filters) ([]domsearch.Hit, error) {
	return m.hits, m.err
}

func (m *mockIndex) Upsert(_ context.Context, doc domain.IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockIndex) BulkUpsert(_ context.Context, docs []domain.IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *mockIndex) Delete(_ context.Context, ids ...string) error {
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
	return n, nil
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

type mockCatalog struct {
	mu   sync.Mutex
	data map[string]domain.Product
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{data: make(map[string]domain.Product)}
	for _, p := range products {
		m.data[p.ID] = p
	}
	return m
}

func (m *mockCatalog) Save(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.ID] = p
	return nil
}

func (m *mockCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mockCatalog) FindByID(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.data[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindAll(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.data))
	for _, p := range m.data {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data), nil
}

func (m *mockCatalog) Find(
	_ context.Context, query string, _ domsearch.Filters, skip, limit int,
) ([]domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Product
	q := strings.ToLower(query)
	for _, p := range m.data {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockGenerator struct {
	reply string
	err   error
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// testServer wires a full server over in-memory mocks.
type testServer struct {
	srv     *httptest.Server
	index   *mockIndex
	catalog *mockCatalog
}

func newTestServer(t *testing.T, index *mockIndex, catalog *mockCatalog) *testServer {
	t.Helper()

	searchSvc := searchuc.New(index, catalog, &mockEmbedder{})
	syncSvc := syncuc.New(catalog, index, &mockEmbedder{}, "test-model")
	composeSvc, err := composeuc.New(
		map[string]composeuc.Generator{"openai": &mockGenerator{reply: "Here you go!"}},
		"openai",
	)
	if err != nil {
		t.Fatalf("compose.New: %v", err)
	}
	healthSvc := healthuc.New(&mockPinger{}, nil, index)

	server := NewServer(searchSvc, syncSvc, composeSvc, healthSvc, catalog, catalog, 10, zap.NewNop())

	r := gochi.NewRouter()
	server.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testServer{srv: ts, index: index, catalog: catalog}
}
