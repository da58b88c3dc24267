// Package search holds the transient value types of one search request:
// filters, pagination, and scored candidates.
package search

// Filters are optional equality constraints applied as a metadata
// pre-filter during vector search and as substring constraints during the
// catalog fallback. Price is not filterable at this stage.
type Filters struct {
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	Gender   string `json:"gender,omitempty"`
	InStock  *bool  `json:"in_stock,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.Brand == "" && f.Category == "" && f.Gender == "" && f.InStock == nil
}
