package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
)

// --- Mocks ---

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	m.data[key] = data
	return nil
}

func (m *memStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	d, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return d, nil
}

func (m *memStore) JSONGetMulti(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k] // nil for missing
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func save(t *testing.T, r *Repo, products ...domain.Product) {
	t.Helper()
	for _, p := range products {
		if err := r.Save(context.Background(), p); err != nil {
			t.Fatalf("Save(%s): %v", p.ID, err)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

// --- Tests ---

func TestSaveAndFindByID(t *testing.T) {
	r := New(newMemStore())
	price := 4.99
	p := domain.Product{
		ID: "p1", Name: "Lip Balm", Brand: "Nivea",
		Category: &domain.Category{Name: "Skincare", Slug: "skincare"},
		Price:    &price,
	}
	save(t, r, p)

	got, err := r.FindByID(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Lip Balm" || got.Brand != "Nivea" {
		t.Errorf("got %+v", got)
	}
	if got.CategoryName() != "Skincare" {
		t.Errorf("category = %q", got.CategoryName())
	}
}

func TestFindByID_NotFound(t *testing.T) {
	r := New(newMemStore())

	_, err := r.FindByID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_RequiresID(t *testing.T) {
	r := New(newMemStore())
	if err := r.Save(context.Background(), domain.Product{Name: "anon"}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	r := New(newMemStore())
	if err := r.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("deleting absent product must not fail: %v", err)
	}
}

func TestFindByIDs_DropsMissing(t *testing.T) {
	r := New(newMemStore())
	save(t, r, domain.Product{ID: "a", Name: "A"}, domain.Product{ID: "c", Name: "C"})

	got, err := r.FindByIDs(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestFindAll_SortedByID(t *testing.T) {
	r := New(newMemStore())
	save(t, r,
		domain.Product{ID: "zz", Name: "Last"},
		domain.Product{ID: "aa", Name: "First"},
		domain.Product{ID: "mm", Name: "Middle"},
	)

	got, err := r.FindAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.ID
	}
	want := []string{"aa", "mm", "zz"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestCount(t *testing.T) {
	r := New(newMemStore())
	save(t, r, domain.Product{ID: "a", Name: "A"}, domain.Product{ID: "b", Name: "B"})

	n, err := r.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestFind_KeywordMatch(t *testing.T) {
	r := New(newMemStore())
	save(t, r,
		domain.Product{ID: "p1", Name: "Hydrating Lip Balm", Brand: "Nivea"},
		domain.Product{ID: "p2", Name: "Bar Soap", Description: "gentle lip-safe formula"},
		domain.Product{ID: "p3", Name: "Shampoo", Tags: []string{"hair"}},
	)

	got, total, err := r.Find(context.Background(), "LIP", search.Filters{}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, p := range got {
		if p.ID == "p3" {
			t.Error("p3 must not match")
		}
	}
}

func TestFind_TagMatch(t *testing.T) {
	r := New(newMemStore())
	save(t, r, domain.Product{ID: "p1", Name: "Shampoo", Tags: []string{"Argan Oil"}})

	_, total, err := r.Find(context.Background(), "argan", search.Filters{}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestFind_FiltersAreANDed(t *testing.T) {
	r := New(newMemStore())
	save(t, r,
		domain.Product{ID: "p1", Name: "Balm", Brand: "Nivea", Gender: "unisex"},
		domain.Product{ID: "p2", Name: "Balm", Brand: "Labello", Gender: "unisex"},
		domain.Product{ID: "p3", Name: "Balm", Brand: "Nivea", Gender: "men"},
	)

	got, total, err := r.Find(context.Background(), "balm",
		search.Filters{Brand: "nivea", Gender: "unisex"}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || got[0].ID != "p1" {
		t.Fatalf("got %v (total %d), want only p1", got, total)
	}
}

func TestFind_InStockFilter(t *testing.T) {
	r := New(newMemStore())
	save(t, r,
		domain.Product{ID: "p1", Name: "Balm", InStock: boolPtr(false)},
		domain.Product{ID: "p2", Name: "Balm"}, // unset means available
	)

	_, total, err := r.Find(context.Background(), "balm",
		search.Filters{InStock: boolPtr(true)}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 (unset in_stock counts as available)", total)
	}
}

func TestFind_Pagination(t *testing.T) {
	r := New(newMemStore())
	save(t, r,
		domain.Product{ID: "a", Name: "Balm A"},
		domain.Product{ID: "b", Name: "Balm B"},
		domain.Product{ID: "c", Name: "Balm C"},
	)

	got, total, err := r.Find(context.Background(), "balm", search.Filters{}, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("page = %v, want only c", got)
	}

	got, total, err = r.Find(context.Background(), "balm", search.Filters{}, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || total != 3 {
		t.Errorf("skip past end: got %d products, total %d", len(got), total)
	}
}

func TestFindAll_SkipsMalformed(t *testing.T) {
	st := newMemStore()
	r := New(st)
	save(t, r, domain.Product{ID: "ok", Name: "Fine"})
	st.data[keyPrefix+"bad"] = []byte("{not json")

	got, err := r.FindAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("got %v, want only the valid product", got)
	}
}

func TestUnmarshalProduct_BackfillsID(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"name": "Anon"})
	p, err := unmarshalProduct("from-key", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "from-key" {
		t.Errorf("ID = %q, want from-key", p.ID)
	}
}
