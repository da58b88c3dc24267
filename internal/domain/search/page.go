package search

import (
	"fmt"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// Page is a 1-indexed pagination cursor.
type Page struct {
	Number int
	Limit  int
}

// NewPage validates page >= 1 and limit >= 1.
func NewPage(number, limit int) (Page, error) {
	if number < 1 {
		return Page{}, fmt.Errorf("page must be >= 1, got %d: %w", number, domain.ErrInvalidPagination)
	}
	if limit < 1 {
		return Page{}, fmt.Errorf("limit must be >= 1, got %d: %w", limit, domain.ErrInvalidPagination)
	}
	return Page{Number: number, Limit: limit}, nil
}

// Offset returns the zero-based index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Pagination is the page metadata returned to clients. Total counts all
// candidates that survived the distance cut, not the full catalog size.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate computes page metadata for a total match count.
func Paginate(p Page, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Page:       p.Number,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Number < totalPages,
		HasPrev:    p.Number > 1,
	}
}
