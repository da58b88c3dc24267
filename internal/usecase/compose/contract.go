package compose

import "context"

// Generator produces a chat completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
