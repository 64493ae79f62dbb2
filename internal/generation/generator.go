// Package generation provides answer text generation via the Gemini API.
package generation

import "context"

// Generator produces text from a prompt. The retrieval core never depends on
// its output; it is used only downstream to phrase answers from evidence.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
