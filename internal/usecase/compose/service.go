package compose

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/logger"
)

// promptProductLimit bounds how many products go into the prompt.
const promptProductLimit = 5

// descriptionSnippetLen truncates descriptions in product summaries.
const descriptionSnippetLen = 100

// Service turns a query and its matching products into a conversational
// answer via a pluggable generator backend.
type Service struct {
	backends       map[string]Generator
	defaultBackend string
}

// New creates a composer. defaultBackend must be a key of backends.
func New(backends map[string]Generator, defaultBackend string) (*Service, error) {
	if _, ok := backends[defaultBackend]; !ok {
		return nil, fmt.Errorf("unknown default backend %q", defaultBackend)
	}
	return &Service{backends: backends, defaultBackend: defaultBackend}, nil
}

// Compose generates the assistant answer for a query and its results.
// Generator failures degrade to a canned line so search never fails on a
// broken chat backend. The returned error is reserved for future use and
// is always nil today.
func (s *Service) Compose(ctx context.Context, query string, products []domain.Product, agent string) (string, error) {
	if len(products) == 0 {
		return fmt.Sprintf(`Sorry, we don't currently have any products related to "%s".`, query), nil
	}

	gen, ok := s.backends[agent]
	if !ok {
		gen = s.backends[s.defaultBackend]
	}

	answer, err := gen.Generate(ctx, buildPrompt(query, products))
	if err != nil {
		logger.FromContext(ctx).Warn("compose: generator failed",
			zap.String("agent", agent),
			zap.Error(err),
		)
		return fmt.Sprintf("Here are some products that match your search for '%s'.", query), nil
	}
	return strings.TrimSpace(answer), nil
}

// Agents lists the configured backend names.
func (s *Service) Agents() []string {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	return names
}

func buildPrompt(query string, products []domain.Product) string {
	if len(products) > promptProductLimit {
		products = products[:promptProductLimit]
	}

	var summaries strings.Builder
	for _, p := range products {
		brand := p.Brand
		if brand == "" {
			brand = "No Brand"
		}
		desc := p.Description
		if len(desc) > descriptionSnippetLen {
			desc = desc[:descriptionSnippetLen]
		}
		fmt.Fprintf(&summaries, "- %s (%s): %s...\n", p.Name, brand, desc)
	}

	return fmt.Sprintf(`You are a smart shopping assistant for an e-commerce store.
User asked: %q

Here are the available products that match their query:
%s
Provide a helpful response recommending these products. Be enthusiastic and mention specific product names, brands, and key features that match what they're looking for.

If the products don't seem relevant to their query, say:
"Sorry, we don't have exactly what you're looking for, but here are some similar products that might interest you."

Keep the response concise and engaging (max 200 words).`, query, summaries.String())
}
