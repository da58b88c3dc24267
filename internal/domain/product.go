package domain

// Category is the nested category object of a catalog product. Only the
// name participates in search.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Product is the authoritative catalog record. The retrieval pipeline
// reads products and never mutates them.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	InStock     *bool     `json:"in_stock,omitempty"`
}

// CategoryName returns the category name, or "" when the product has no category.
func (p *Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// Available reports stock status. Absent in_stock defaults to true.
func (p *Product) Available() bool {
	return p.InStock == nil || *p.InStock
}

// IndexedDocument is the disposable projection of a Product held in the
// vector index. Created and replaced by the sync engine only.
type IndexedDocument struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}
