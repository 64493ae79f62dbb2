// Package embedding provides text embedding via the Gemini API.
package embedding

import "context"

// Task tells the embedding model whether the text is an indexed document or a
// search query.
type Task string

const (
	TaskDocument Task = "RETRIEVAL_DOCUMENT"
	TaskQuery    Task = "RETRIEVAL_QUERY"
)

// Embedder produces vector embeddings for text. Any failure means "this item
// could not be embedded"; callers decide whether that is recoverable (a chunk
// skipped at build time) or fatal (a query embedding at retrieval time).
type Embedder interface {
	Embed(ctx context.Context, text string, task Task) ([]float32, error)
	Close() error
}
