package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultThreshold is the minimum similarity for a non-fallback intent.
const DefaultThreshold float32 = 0.65

// Classifier routes utterances to intents by nearest exemplar.
//
// Classify is safe for concurrent use. Rebuilds are serialized and swap
// the index atomically.
type Classifier struct {
	embedder  ai.Embedder
	extractor *SlotExtractor
	threshold float32
	logger    *slog.Logger

	classifications *prometheus.CounterVec
	scores          prometheus.Observer

	writeMu sync.Mutex
	base    KnowledgeBase
	titles  []string
	index   atomic.Pointer[Index]
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithThreshold sets the fallback threshold.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(c *Classifier) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
		}
		c.threshold = threshold
		return nil
	}
}

// WithSlotExtractor sets the extractor used for matched intents.
// Default uses the built-in alias table and stop phrases.
func WithSlotExtractor(extractor *SlotExtractor) Option {
	return func(c *Classifier) error {
		if extractor != nil {
			c.extractor = extractor
		}
		return nil
	}
}

// WithMetrics records classifications on a counter vec labelled
// "intent" and "fallback", and best scores on an observer. Either may be nil.
func WithMetrics(classifications *prometheus.CounterVec, scores prometheus.Observer) Option {
	return func(c *Classifier) error {
		c.classifications = classifications
		c.scores = scores
		return nil
	}
}

// NewClassifier creates a classifier over kb. The index is built on the
// first Classify or by an explicit Rebuild.
func NewClassifier(embedder ai.Embedder, kb KnowledgeBase, opts ...Option) (*Classifier, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if err := kb.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		embedder:  embedder,
		threshold: DefaultThreshold,
		base:      kb.Clone(),
		logger:    slog.Default().With("component", "classifier"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.extractor == nil {
		c.extractor = NewSlotExtractor(nil, nil, nil)
	}
	return c, nil
}

// Threshold returns the fallback threshold.
func (c *Classifier) Threshold() float32 {
	return c.threshold
}

// Extractor returns the slot extractor.
func (c *Classifier) Extractor() *SlotExtractor {
	return c.extractor
}

// Index returns the current snapshot, or nil before the first build.
func (c *Classifier) Index() *Index {
	return c.index.Load()
}

// Rebuild embeds the current knowledge base plus any recipe titles and
// swaps in the new index.
func (c *Classifier) Rebuild(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.rebuildLocked(ctx)
}

// SetKnowledgeBase replaces the knowledge base and rebuilds. Recipe titles
// already received are kept. On failure the previous index stays active.
func (c *Classifier) SetKnowledgeBase(ctx context.Context, kb KnowledgeBase) error {
	if err := kb.Validate(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	prev := c.base
	c.base = kb.Clone()
	if err := c.rebuildLocked(ctx); err != nil {
		c.base = prev
		return err
	}
	return nil
}

// OnRecipesLoaded adds titles as search_recipe exemplars and rebuilds.
// Titles from an earlier call are replaced, not accumulated.
func (c *Classifier) OnRecipesLoaded(ctx context.Context, titles []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	prev := c.titles
	c.titles = nonEmpty(titles)
	if err := c.rebuildLocked(ctx); err != nil {
		c.titles = prev
		return err
	}
	c.logger.Info("added recipe titles to intent index", "titles", len(c.titles), "rows", c.index.Load().Len())
	return nil
}

func (c *Classifier) rebuildLocked(ctx context.Context) error {
	kb := c.base.With(core.IntentSearchRecipe, c.titles...)
	idx, err := BuildIndex(ctx, c.embedder, kb, c.index.Load())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
	}
	c.index.Store(idx)
	c.logger.Debug("intent index rebuilt", "rows", idx.Len(), "dimensions", idx.Dimensions())
	return nil
}

func (c *Classifier) snapshot(ctx context.Context) (*Index, error) {
	if idx := c.index.Load(); idx != nil {
		return idx, nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if idx := c.index.Load(); idx != nil {
		return idx, nil
	}
	if err := c.rebuildLocked(ctx); err != nil {
		return nil, err
	}
	return c.index.Load(), nil
}

// Classify routes utterance to an intent and extracts its slots.
func (c *Classifier) Classify(ctx context.Context, utterance string) (core.Classification, error) {
	return c.ClassifyWithMonitor(ctx, utterance, nil)
}

// ClassifyWithMonitor is Classify with tracing hooks.
func (c *Classifier) ClassifyWithMonitor(ctx context.Context, utterance string, monitor ClassifyMonitor) (core.Classification, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(utterance)

	idx, err := c.snapshot(ctx)
	if err != nil {
		return core.Classification{}, err
	}

	vector, err := c.embedder.EmbedText(ctx, utterance)
	if err != nil {
		return core.Classification{}, fmt.Errorf("%w: embedding utterance: %w", ErrClassificationUnavailable, err)
	}
	monitor.AfterEmbedding(vector)

	best, score, err := idx.Nearest(vector)
	if err != nil {
		return core.Classification{}, fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
	}

	result := core.Classification{
		Intent: core.FallbackIntent,
		Score:  score,
		Slots:  map[string]*string{},
	}
	if best >= 0 {
		monitor.BestMatch(idx.Row(best), score)
	}
	if best >= 0 && score >= c.threshold {
		result.Intent = idx.Row(best).Intent
		result.Slots = c.extractor.Extract(result.Intent, utterance)
	} else {
		monitor.Fallback(score, c.threshold)
	}

	c.record(result, best < 0 || score < c.threshold)
	c.logger.Debug("classified utterance", "intent", result.Intent, "score", score)
	monitor.Finish(result)
	return result, nil
}

func (c *Classifier) record(result core.Classification, fallback bool) {
	if c.classifications != nil {
		c.classifications.WithLabelValues(string(result.Intent), strconv.FormatBool(fallback)).Inc()
	}
	if c.scores != nil {
		c.scores.Observe(float64(result.Score))
	}
}

func nonEmpty(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
