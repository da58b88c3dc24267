package search

// Hit is one raw nearest-neighbor result from the vector index, ordered
// distance-ascending. Lower distance means closer.
type Hit struct {
	ID       string
	Distance float64
	Document string
	Metadata map[string]string
}

// Candidate is a hit after relevance scoring. It exists only for the
// duration of one search call and is never persisted.
type Candidate struct {
	ProductID string            `json:"product_id"`
	Distance  float64           `json:"distance"`
	Score     float64           `json:"relevance_score"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
