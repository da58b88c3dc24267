// Package catalog persists authoritative product records as JSON
// documents and serves the deterministic keyword fallback search.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
)

const keyPrefix = domain.KeyPrefix + "product:"

// store is the consumer interface for catalog operations.
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo is the catalog store.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

func productKey(id string) string { return keyPrefix + id }

// Save upserts one product document.
func (r *Repo) Save(ctx context.Context, p domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	if err := r.store.JSONSet(ctx, productKey(p.ID), "$", data); err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes one product document. Absence is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, productKey(id)); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// FindByID fetches one product.
func (r *Repo) FindByID(ctx context.Context, id string) (domain.Product, error) {
	data, err := r.store.JSONGet(ctx, productKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return unmarshalProduct(id, data)
}

// FindByIDs fetches products in a single pipelined round-trip. Missing or
// malformed documents are dropped, so the returned order and length may
// differ from the requested ids.
func (r *Repo) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	products := make([]domain.Product, 0, len(raws))
	for i, data := range raws {
		if data == nil {
			continue
		}
		p, err := unmarshalProduct(ids[i], data)
		if err != nil {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// FindAll returns every product, id-ascending.
func (r *Repo) FindAll(ctx context.Context) ([]domain.Product, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	sort.Strings(keys)

	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	products := make([]domain.Product, 0, len(raws))
	for i, data := range raws {
		if data == nil {
			continue
		}
		p, err := unmarshalProduct(strings.TrimPrefix(keys[i], keyPrefix), data)
		if err != nil {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Count returns the number of products in the catalog.
func (r *Repo) Count(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan products: %w", err)
	}
	return len(keys), nil
}

// Find is the keyword fallback: a case-insensitive substring OR-match of
// the query across name, brand, description, tags, and gender, ANDed with
// any active filters. No relevance ranking; results are id-ascending.
// Returns the requested page and the total match count.
func (r *Repo) Find(
	ctx context.Context, query string, filters search.Filters, skip, limit int,
) ([]domain.Product, int, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	q := strings.ToLower(query)
	matched := make([]domain.Product, 0)
	for _, p := range all {
		if matchesKeyword(&p, q) && matchesFilters(&p, filters) {
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

func matchesKeyword(p *domain.Product, q string) bool {
	if q == "" {
		return true
	}
	if containsFold(p.Name, q) || containsFold(p.Brand, q) ||
		containsFold(p.Description, q) || containsFold(p.Gender, q) {
		return true
	}
	for _, tag := range p.Tags {
		if containsFold(tag, q) {
			return true
		}
	}
	return false
}

func matchesFilters(p *domain.Product, f search.Filters) bool {
	if f.Brand != "" && !containsFold(p.Brand, strings.ToLower(f.Brand)) {
		return false
	}
	if f.Category != "" && !containsFold(p.CategoryName(), strings.ToLower(f.Category)) {
		return false
	}
	if f.Gender != "" && !containsFold(p.Gender, strings.ToLower(f.Gender)) {
		return false
	}
	if f.InStock != nil && p.Available() != *f.InStock {
		return false
	}
	return true
}

// containsFold reports whether s contains the already-lowercased substring q.
func containsFold(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}

func unmarshalProduct(id string, data []byte) (domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}
