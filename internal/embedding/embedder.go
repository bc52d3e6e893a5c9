// Package embedding provides text embedding via a remote API, with caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. The same embedder
// configuration must be used for indexing and querying; vectors from
// different models are not comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
