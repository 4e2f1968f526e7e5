package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultThreshold is the minimum title similarity for a match.
const DefaultThreshold float32 = 0.65

// LoadListener is notified with the recipe titles, in corpus order, after
// every successful load.
type LoadListener func(ctx context.Context, titles []string) error

// Retriever owns the recipe corpus and its title index.
type Retriever struct {
	embedder   ai.Embedder
	source     Source
	cache      *FileCache
	normalizer Normalizer
	threshold  float32
	logger     *slog.Logger
	retrievals *prometheus.CounterVec

	loadMu    sync.Mutex
	corpus    atomic.Pointer[Corpus]
	listeners []LoadListener
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithSource sets the remote corpus source. Without one only the cache
// file is read.
func WithSource(source Source) Option {
	return func(r *Retriever) error {
		r.source = source
		return nil
	}
}

// WithCache sets the local cache file.
func WithCache(cache *FileCache) Option {
	return func(r *Retriever) error {
		r.cache = cache
		return nil
	}
}

// WithNormalizer sets the text normalizer applied to fetched recipes.
// Default is IdentityNormalizer.
func WithNormalizer(n Normalizer) Option {
	return func(r *Retriever) error {
		if n == nil {
			n = IdentityNormalizer{}
		}
		r.normalizer = n
		return nil
	}
}

// WithThreshold sets the match threshold.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(r *Retriever) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("threshold %v outside [-1, 1]", threshold)
		}
		r.threshold = threshold
		return nil
	}
}

// WithMetrics records retrieval outcomes on a counter vec labelled "outcome".
func WithMetrics(retrievals *prometheus.CounterVec) Option {
	return func(r *Retriever) error {
		r.retrievals = retrievals
		return nil
	}
}

// NewRetriever creates a retriever. Nothing is loaded until EnsureLoaded.
func NewRetriever(embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	r := &Retriever{
		embedder:   embedder,
		normalizer: IdentityNormalizer{},
		threshold:  DefaultThreshold,
		logger:     slog.Default().With("component", "recipes"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// OnLoaded registers a listener. Listeners registered after a load are not
// called for it.
func (r *Retriever) OnLoaded(fn LoadListener) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Loaded reports whether a non-empty corpus is available.
func (r *Retriever) Loaded() bool {
	return r.corpus.Load().Len() > 0
}

// Corpus returns the current snapshot, possibly nil.
func (r *Retriever) Corpus() *Corpus {
	return r.corpus.Load()
}

// EnsureLoaded loads the corpus once. Concurrent callers wait for the
// first load. After a failed load the next call tries again.
func (r *Retriever) EnsureLoaded(ctx context.Context) error {
	if r.Loaded() {
		return nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.Loaded() {
		return nil
	}
	return r.loadLocked(ctx, false)
}

// Refresh fetches the remote corpus regardless of the cache and replaces
// the current snapshot on success.
func (r *Retriever) Refresh(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.loadLocked(ctx, true)
}

func (r *Retriever) loadLocked(ctx context.Context, skipCache bool) error {
	recipes, err := r.readCorpus(ctx, skipCache)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	titles := make([]string, len(recipes))
	for i, rec := range recipes {
		titles[i] = rec.Name
	}
	vectors, err := r.embedder.EmbedTexts(ctx, titles)
	if err != nil {
		return fmt.Errorf("%w: embedding titles: %w", ErrRetrievalUnavailable, err)
	}
	if len(vectors) != len(titles) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d titles", ErrRetrievalUnavailable, len(vectors), len(titles))
	}

	corpus, err := newCorpus(recipes, vectors)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	r.corpus.Store(corpus)
	r.logger.Info("recipe corpus loaded", "recipes", corpus.Len())

	for _, fn := range r.listeners {
		if err := fn(ctx, corpus.Titles()); err != nil {
			r.logger.Warn("recipe load listener failed", "err", err)
		}
	}
	return nil
}

// readCorpus returns normalized recipes from the cache or the source.
func (r *Retriever) readCorpus(ctx context.Context, skipCache bool) ([]core.Recipe, error) {
	if r.cache != nil && !skipCache {
		recipes, err := r.cache.Load()
		if err == nil {
			recipes = validRecipes(recipes, r.logger)
			if len(recipes) > 0 {
				r.logger.Debug("recipes read from cache", "path", r.cache.Path(), "recipes", len(recipes))
				return recipes, nil
			}
		} else if errors.Is(err, ErrCacheCorrupt) {
			r.logger.Warn("recipe cache unreadable, fetching remote", "err", err)
		}
	}

	if r.source == nil {
		return nil, errors.New("no recipe source configured")
	}
	raw, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	recipes := make([]core.Recipe, 0, len(raw))
	for _, rec := range validRecipes(raw, r.logger) {
		n, err := NormalizeRecipe(r.normalizer, rec)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, n)
	}
	if len(recipes) == 0 {
		return nil, errors.New("remote corpus is empty")
	}

	if r.cache != nil {
		if err := r.cache.Save(recipes); err != nil {
			r.logger.Warn("writing recipe cache failed", "path", r.cache.Path(), "err", err)
		}
	}
	return recipes, nil
}

func validRecipes(recipes []core.Recipe, logger *slog.Logger) []core.Recipe {
	out := make([]core.Recipe, 0, len(recipes))
	for i := range recipes {
		if err := core.ValidateRecipe(&recipes[i]); err != nil {
			logger.Warn("skipping recipe", "position", i, "err", err)
			continue
		}
		out = append(out, recipes[i])
	}
	return out
}

// Retrieve returns the recipe whose title best matches query.
//
// The corpus is loaded first if needed. ErrRetrievalUnavailable means no
// corpus. ErrNoMatch is returned together with the best candidate when its
// score is below the threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string) (core.RecipeMatch, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		r.logger.Warn("recipe corpus not loaded", "err", err)
	}
	corpus := r.corpus.Load()
	if corpus.Len() == 0 {
		r.count("unavailable")
		return core.RecipeMatch{}, ErrRetrievalUnavailable
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.count("error")
		return core.RecipeMatch{}, fmt.Errorf("embedding query: %w", err)
	}
	best, score, err := corpus.nearest(vector)
	if err != nil {
		r.count("error")
		return core.RecipeMatch{}, err
	}
	if best < 0 {
		r.count("unavailable")
		return core.RecipeMatch{}, ErrRetrievalUnavailable
	}

	recipe := corpus.Recipe(best)
	match := core.RecipeMatch{Recipe: &recipe, Score: score}
	r.logger.Debug("recipe lookup", "query", query, "recipe", recipe.Name, "score", score)
	if score < r.threshold {
		r.count("no_match")
		return match, ErrNoMatch
	}
	r.count("hit")
	return match, nil
}

// Titles returns the titles of the loaded corpus.
func (r *Retriever) Titles() []string {
	return r.corpus.Load().Titles()
}

// Random returns a uniformly chosen recipe.
func (r *Retriever) Random(ctx context.Context) (core.Recipe, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		r.logger.Warn("recipe corpus not loaded", "err", err)
	}
	corpus := r.corpus.Load()
	if corpus.Len() == 0 {
		return core.Recipe{}, ErrRetrievalUnavailable
	}
	return corpus.Recipe(rand.IntN(corpus.Len())), nil
}

func (r *Retriever) count(outcome string) {
	if r.retrievals != nil {
		r.retrievals.WithLabelValues(outcome).Inc()
	}
}
