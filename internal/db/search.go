package db

// MatchFilter is an exact-match TAG constraint ANDed into the KNN
// pre-filter.
type MatchFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []MatchFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Distance is the raw
// vector distance reported by the index (lower = closer).
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
