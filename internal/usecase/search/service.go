package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
	"github.com/kailas-cloud/shopsearch/internal/domain/searchtext"
	"github.com/kailas-cloud/shopsearch/internal/logger"
)

const (
	// DefaultMaxDistance is the distance cutoff applied when the request
	// does not carry an explicit one.
	DefaultMaxDistance = 1.2

	// fetchMultiplier widens the KNN fetch so later pages and the distance
	// cutoff still have candidates to draw from.
	fetchMultiplier = 3

	// maxFetchK caps the KNN fetch size.
	maxFetchK = 50
)

// Request describes a ranked product search.
type Request struct {
	Query       string
	Page        int
	Limit       int
	Filters     search.Filters
	MaxDistance *float64 // nil means DefaultMaxDistance; 0 keeps exact matches only
}

// Result is one page of ranked products. Hits[i] carries the score and
// distance for Products[i].
type Result struct {
	Products []domain.Product
	Hits     []search.Candidate
	Total    int
}

// Service ranks catalog products against a free-text query using vector
// retrieval plus lexical boosts.
type Service struct {
	index   Index
	catalog Catalog
	embed   Embedder
}

// New creates a search service.
func New(index Index, catalog Catalog, embed Embedder) *Service {
	return &Service{index: index, catalog: catalog, embed: embed}
}

// Search runs the full retrieval pipeline. Upstream failures (embedding,
// index) degrade to an empty result so the caller can fall back to keyword
// search instead of returning an error to the user.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx)

	query := searchtext.Normalize(req.Query)
	if query == "" {
		return Result{}, fmt.Errorf("empty query: %w", domain.ErrInvalidQuery)
	}
	page, err := search.NewPage(req.Page, req.Limit)
	if err != nil {
		return Result{}, err
	}

	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		log.Warn("search: embedding unavailable", zap.Error(err))
		return Result{}, nil
	}

	fetchK := fetchMultiplier * page.Number * page.Limit
	if fetchK > maxFetchK {
		fetchK = maxFetchK
	}

	hits, err := s.index.Query(ctx, embRes.Embedding, fetchK, req.Filters)
	if err != nil {
		log.Warn("search: vector query failed", zap.Error(err))
		return Result{}, nil
	}

	maxDistance := DefaultMaxDistance
	if req.MaxDistance != nil {
		maxDistance = *req.MaxDistance
	}

	candidates := make([]search.Candidate, 0, len(hits))
	for _, h := range hits {
		if h.Distance > maxDistance {
			continue
		}
		candidates = append(candidates, search.Candidate{
			ProductID: h.ID,
			Distance:  h.Distance,
			Score:     relevanceScore(query, h.Distance, h.Metadata, req.Filters),
			Metadata:  h.Metadata,
		})
	}

	// Stable sort keeps index order for equal scores, so results are
	// deterministic across identical requests.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	total := len(candidates)
	offset := page.Offset()
	if offset >= total {
		return Result{Total: total}, nil
	}
	end := offset + page.Limit
	if end > total {
		end = total
	}
	pageCandidates := candidates[offset:end]

	products, hitsOut, err := s.resolve(ctx, pageCandidates)
	if err != nil {
		return Result{}, err
	}
	return Result{Products: products, Hits: hitsOut, Total: total}, nil
}

// resolve loads products for the given candidates in one batch, preserving
// candidate order and dropping ids that no longer exist in the catalog.
func (s *Service) resolve(ctx context.Context, candidates []search.Candidate) ([]domain.Product, []search.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ProductID
	}

	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve products: %w", err)
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	products := make([]domain.Product, 0, len(candidates))
	kept := make([]search.Candidate, 0, len(candidates))
	for _, c := range candidates {
		p, ok := byID[c.ProductID]
		if !ok {
			continue
		}
		products = append(products, p)
		kept = append(kept, c)
	}
	return products, kept, nil
}
