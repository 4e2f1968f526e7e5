package storage

import "context"

// EmbeddingCache persists embedding vectors keyed by (model, text).
// Implementations must be thread-safe and support concurrent access.
type EmbeddingCache interface {
	// GetVectors looks up every text. The result has the same length as
	// texts; misses are nil entries.
	GetVectors(ctx context.Context, model string, texts []string) ([][]float32, error)

	// PutVectors stores vectors[i] for texts[i].
	PutVectors(ctx context.Context, model string, texts []string, vectors [][]float32) error

	// Count returns the number of cached vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the cache.
	Close() error
}
