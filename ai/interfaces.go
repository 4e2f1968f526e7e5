package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend is one generative model reachable under a fixed name.
// Implementations must be thread-safe for concurrent use.
type Backend interface {
	// Name returns the model identifier, e.g. "gemini-2.0-flash".
	Name() string

	// Generate produces text for the ordered prompt parts.
	// Errors should carry enough information for the dispatcher to tell
	// quota exhaustion, outages and unknown models apart.
	Generate(ctx context.Context, parts []Part) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Backends returns the generation backends in priority order.
	Backends() []Backend

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
