package search

import (
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/search"
)

// Boost weights applied on top of the distance-derived base score.
const (
	boostNameMatch     = 0.30
	boostBrandMatch    = 0.20
	boostCategoryMatch = 0.15
	boostFilterBrand   = 0.20
	boostFilterCat     = 0.20
	boostInStock       = 0.10
)

// relevanceScore converts a raw vector distance into a 0..1 relevance score,
// boosted by lexical overlap with the normalized query and by filter matches.
// The normalized query must already be lowercased.
func relevanceScore(query string, distance float64, meta map[string]string, filters search.Filters) float64 {
	score := 1 - distance
	if score < 0 {
		score = 0
	}

	name := strings.ToLower(meta["name"])
	brand := strings.ToLower(meta["brand"])
	category := strings.ToLower(meta["category"])

	if query != "" {
		if name != "" && strings.Contains(name, query) {
			score += boostNameMatch
		}
		if brand != "" && strings.Contains(brand, query) {
			score += boostBrandMatch
		}
		if category != "" && strings.Contains(category, query) {
			score += boostCategoryMatch
		}
	}

	if filters.Brand != "" && strings.Contains(brand, strings.ToLower(filters.Brand)) {
		score += boostFilterBrand
	}
	if filters.Category != "" && strings.Contains(category, strings.ToLower(filters.Category)) {
		score += boostFilterCat
	}

	// Absent in_stock metadata counts as available.
	if meta["in_stock"] != "false" {
		score += boostInStock
	}

	if score > 1 {
		score = 1
	}
	return score
}
