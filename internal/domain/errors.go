package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty search query.
	ErrInvalidQuery = errors.New("query is required")
	// ErrInvalidPagination signals page or limit out of range.
	ErrInvalidPagination = errors.New("invalid pagination")
	// ErrNotFound signals a missing catalog product.
	ErrNotFound = errors.New("product not found")
	// ErrNoSearchableContent signals a product with no indexable text.
	ErrNoSearchableContent = errors.New("product has no searchable content")
	// ErrUpstreamUnavailable signals a vector index, catalog store, or
	// embedding provider failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
