// Package index stores indexed product documents as Redis hashes and
// serves metadata-filtered KNN queries over them via FT.SEARCH.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search"
	"github.com/kailas-cloud/shopsearch/internal/domain/searchtext"
)

const (
	docPrefix = domain.KeyPrefix + "doc:"
	indexName = domain.KeyPrefix + "products:idx"

	fieldText   = "__text"
	fieldVector = "__vector"
	fieldScore  = "__vector_score"
)

// metadataFields are the flat scalar fields stored beside the vector and
// returned with every hit.
var metadataFields = []string{"name", "brand", "category", "gender", "tags", "price", "in_stock"}

// store is the consumer interface for vector index operations.
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the vector index.
type Repo struct {
	store store
	hnsw  HNSWConfig
}

// New creates a vector index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func docKey(id string) string { return docPrefix + id }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        indexName,
		StorageType: db.StorageHash,
		Prefixes:    []string{docPrefix},
		Fields: []db.IndexField{
			{Name: "name", Type: db.IndexFieldTag},
			{Name: "brand", Type: db.IndexFieldTag},
			{Name: "category", Type: db.IndexFieldTag},
			{Name: "gender", Type: db.IndexFieldTag},
			{Name: "in_stock", Type: db.IndexFieldTag},
			{Name: "tags", Type: db.IndexFieldTag, TagSeparator: searchtext.TagSeparator},
			{Name: "price", Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert replaces the indexed document with the given id. The delete
// first keeps replace semantics: HSET alone would merge fields and leave
// stale metadata behind.
func (r *Repo) Upsert(ctx context.Context, doc domain.IndexedDocument) error {
	if err := r.store.Del(ctx, docKey(doc.ID)); err != nil {
		return fmt.Errorf("replace document %s: %w", doc.ID, err)
	}
	if err := r.store.HSet(ctx, docKey(doc.ID), docFields(doc)); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// BulkUpsert replaces multiple indexed documents in one pipelined round-trip.
func (r *Repo) BulkUpsert(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(docs))
	for i, doc := range docs {
		items[i] = db.HashSetItem{Key: docKey(doc.ID), Fields: docFields(doc)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("bulk upsert %d documents: %w", len(docs), err)
	}
	return nil
}

// Delete removes indexed documents by id. Missing ids are ignored.
func (r *Repo) Delete(ctx context.Context, ids ...string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// DeleteAll removes every indexed document and returns how many were removed.
func (r *Repo) DeleteAll(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, docPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan documents: %w", err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	return len(keys), nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Query runs a metadata-filtered KNN search and returns hits in
// distance-ascending order.
func (r *Repo) Query(
	ctx context.Context, vector []float32, k int, filters search.Filters,
) ([]search.Hit, error) {
	returnFields := append([]string{fieldText, fieldScore}, metadataFields...)

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Filters:      matchFilters(filters),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	hits := make([]search.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, parseHit(entry))
	}
	return hits, nil
}

// matchFilters translates non-empty filter fields into exact-match TAG
// constraints. Price is not filterable at this stage.
func matchFilters(f search.Filters) []db.MatchFilter {
	var out []db.MatchFilter
	if f.Brand != "" {
		out = append(out, db.MatchFilter{Field: "brand", Value: f.Brand})
	}
	if f.Category != "" {
		out = append(out, db.MatchFilter{Field: "category", Value: f.Category})
	}
	if f.Gender != "" {
		out = append(out, db.MatchFilter{Field: "gender", Value: f.Gender})
	}
	if f.InStock != nil {
		out = append(out, db.MatchFilter{Field: "in_stock", Value: strconv.FormatBool(*f.InStock)})
	}
	return out
}

func parseHit(entry db.SearchEntry) search.Hit {
	hit := search.Hit{
		ID:       strings.TrimPrefix(entry.Key, docPrefix),
		Distance: entry.Distance,
		Metadata: make(map[string]string, len(entry.Fields)),
	}
	for k, v := range entry.Fields {
		switch k {
		case fieldText:
			hit.Document = v
		case fieldVector:
			// not requested; skip if a server returns it anyway
		default:
			hit.Metadata[k] = v
		}
	}
	return hit
}

func docFields(doc domain.IndexedDocument) map[string]string {
	fields := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		fields[k] = v
	}
	fields[fieldText] = doc.Text
	fields[fieldVector] = vectorToBytes(doc.Embedding)
	return fields
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
