// Package cache provides an ai.Embedder decorator that reads and writes
// vectors through a storage.EmbeddingCache.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Embedder caches embeddings of an inner embedder. Cache failures are logged
// and fall through to the inner embedder.
type Embedder struct {
	inner      ai.Embedder
	store      storage.EmbeddingCache
	model      string
	cacheTotal *prometheus.CounterVec
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithCounter records hits and misses on a counter vec labelled "result".
func WithCounter(c *prometheus.CounterVec) Option {
	return func(e *Embedder) {
		e.cacheTotal = c
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New wraps inner. model namespaces the cache entries and must change
// whenever the embedding model does.
func New(inner ai.Embedder, store storage.EmbeddingCache, model string, opts ...Option) (*Embedder, error) {
	if inner == nil {
		return nil, errors.New("inner embedder required")
	}
	if store == nil {
		return nil, errors.New("embedding cache required")
	}
	e := &Embedder{
		inner:  inner,
		store:  store,
		model:  model,
		logger: slog.Default().With("component", "cached-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EmbedText returns the cached vector or embeds and stores it.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts serves hits from the cache and embeds only the misses, in a
// single inner batch call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.store.GetVectors(ctx, e.model, texts)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "err", err)
		out = make([][]float32, len(texts))
	}

	var missIdx []int
	var missTexts []string
	for i, v := range out {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	e.count("hit", len(texts)-len(missIdx))
	e.count("miss", len(missIdx))

	if len(missIdx) == 0 {
		return out, nil
	}

	vectors, err := e.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, errors.New("embedder returned wrong number of vectors")
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
	}

	if err := e.store.PutVectors(ctx, e.model, missTexts, vectors); err != nil {
		e.logger.Warn("embedding cache write failed", "count", len(missTexts), "err", err)
	}
	return out, nil
}

func (e *Embedder) count(result string, n int) {
	if e.cacheTotal != nil && n > 0 {
		e.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}
