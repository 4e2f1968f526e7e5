package warmup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/butler/ai"
)

// DefaultBatchSize is how many texts go into one embedding call.
const DefaultBatchSize = 64

// Stats summarizes a warm-up run.
type Stats struct {
	Texts   int
	Batches int
}

// Warmer embeds texts in batches.
type Warmer struct {
	embedder  ai.Embedder
	batchSize int
	policy    RetryPolicy
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Warmer.
type Option func(*Warmer) error

// WithBatchSize sets the number of texts per embedding call.
func WithBatchSize(n int) Option {
	return func(w *Warmer) error {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
		w.batchSize = n
		return nil
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(w *Warmer) error {
		if p.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		w.policy = p
		return nil
	}
}

// WithProgress writes a progress line to out.
func WithProgress(out io.Writer) Option {
	return func(w *Warmer) error {
		w.progress = out
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Warmer) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// New creates a Warmer over embedder.
func New(embedder ai.Embedder, opts ...Option) (*Warmer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	w := &Warmer{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		policy:    DefaultRetryPolicy(),
		logger:    slog.Default().With("component", "warmup"),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Run embeds every distinct non-blank text once. It stops at the first batch
// that still fails after retries.
func (w *Warmer) Run(ctx context.Context, texts []string) (Stats, error) {
	unique := Dedupe(texts)
	stats := Stats{}
	progress := NewProgress(w.progress, "Embedding", len(unique), w.batchSize)
	progress.Start()
	defer progress.Finish()

	for start := 0; start < len(unique); start += w.batchSize {
		batch := unique[start:min(start+w.batchSize, len(unique))]

		err := Retry(ctx, w.policy, w.logger, func(ctx context.Context) error {
			vectors, err := w.embedder.EmbedTexts(ctx, batch)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}

		stats.Batches++
		stats.Texts += len(batch)
		progress.Add(len(batch))
	}

	w.logger.Info("warm-up complete", "texts", stats.Texts, "batches", stats.Batches)
	return stats, nil
}

// Dedupe drops blank and repeated texts, keeping first occurrences in order.
func Dedupe(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
