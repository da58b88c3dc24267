// Package searchtext builds the normalized, field-weighted text and the
// flat metadata that represent a product in the vector index. The same
// normalization is applied to user queries at search time.
package searchtext

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// TagSeparator joins tag values into a single scalar metadata field.
const TagSeparator = "|"

type weightedField struct {
	name    string
	weight  float64
	extract func(p *domain.Product) string
}

// Weighted term repetition biases the embedding toward name and brand
// similarity without a custom-trained model. Order is weight-descending
// and fixed: index-time and query-time text must agree.
var weightedFields = []weightedField{
	{"name", 4, func(p *domain.Product) string { return p.Name }},
	{"brand", 3, func(p *domain.Product) string { return p.Brand }},
	{"description", 2.5, func(p *domain.Product) string { return p.Description }},
	{"tags", 2, func(p *domain.Product) string { return strings.Join(p.Tags, " ") }},
	{"category", 1.5, func(p *domain.Product) string { return p.CategoryName() }},
	{"gender", 1, func(p *domain.Product) string { return p.Gender }},
	{"price", 0.5, priceText},
}

// Normalize lower-cases the input, replaces every non-alphanumeric rune
// with a space, collapses repeated whitespace, and trims. Idempotent and
// total over any string, including the empty string.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Searchable builds the weighted index text for a product: each non-empty
// normalized field value is repeated max(1, floor(weight)) times in
// weight-descending field order. Returns "" when every field is empty;
// callers must not embed such a product.
func Searchable(p *domain.Product) string {
	var parts []string
	for _, f := range weightedFields {
		v := Normalize(f.extract(p))
		if v == "" {
			continue
		}
		reps := int(f.weight)
		if reps < 1 {
			reps = 1
		}
		for i := 0; i < reps; i++ {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// Metadata builds the flat, unweighted metadata mapping stored alongside
// the embedding. Tags are joined with TagSeparator so they stay a single
// scalar; empty fields are omitted except in_stock, which defaults true.
func Metadata(p *domain.Product) map[string]string {
	m := make(map[string]string, len(weightedFields))
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("name", p.Name)
	put("brand", p.Brand)
	put("tags", strings.Join(p.Tags, TagSeparator))
	put("category", p.CategoryName())
	put("gender", p.Gender)
	put("price", priceText(p))
	m["in_stock"] = strconv.FormatBool(p.Available())
	return m
}

func priceText(p *domain.Product) string {
	if p.Price == nil {
		return ""
	}
	return strconv.FormatFloat(*p.Price, 'f', -1, 64)
}
