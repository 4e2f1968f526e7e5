// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package butler assembles the intent classifier, recipe retriever and
// generation dispatcher into one service.
package butler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/ai/cache"
	"github.com/poiesic/butler/ai/googleai"
	"github.com/poiesic/butler/ai/openai"
	"github.com/poiesic/butler/assistant"
	"github.com/poiesic/butler/config"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/dispatch"
	"github.com/poiesic/butler/intent"
	"github.com/poiesic/butler/metrics"
	"github.com/poiesic/butler/recipes"
	"github.com/poiesic/butler/storage/badger"
	"github.com/poiesic/butler/warmup"
)

// Butler owns every component and their shared resources.
type Butler struct {
	cfg        *config.Config
	provider   ai.AIProvider
	backend    *badger.Backend
	embedder   ai.Embedder
	classifier *intent.Classifier
	retriever  *recipes.Retriever
	dispatcher *dispatch.Dispatcher
	assistant  *assistant.Assistant
	logger     *slog.Logger
}

// Option configures a Butler.
type Option func(*options)

type options struct {
	provider      ai.AIProvider
	source        recipes.Source
	metrics       bool
	assistantOpts []assistant.Option
	logger        *slog.Logger
}

// WithProvider uses p instead of building one from the ai config section.
// The Butler takes ownership and closes it.
func WithProvider(p ai.AIProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithRecipeSource replaces the HTTP source built from recipes.source_url.
func WithRecipeSource(s recipes.Source) Option {
	return func(o *options) {
		o.source = s
	}
}

// WithMetrics registers the butler collectors with the default Prometheus
// registry and records into them.
func WithMetrics() Option {
	return func(o *options) {
		o.metrics = true
	}
}

// WithAssistantOptions passes extra options, e.g. weather or places
// services, to the assistant.
func WithAssistantOptions(opts ...assistant.Option) Option {
	return func(o *options) {
		o.assistantOpts = append(o.assistantOpts, opts...)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New wires a Butler from cfg. Nothing is fetched or embedded until first
// use; call EnsureDocumentsLoaded to load the recipe corpus eagerly.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Butler, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	b := &Butler{cfg: cfg, provider: o.provider, logger: o.logger}
	if b.provider == nil {
		p, err := newProvider(ctx, cfg.AIConfig())
		if err != nil {
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
		b.provider = p
	}

	if err := b.wire(o); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func newProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	switch cfg.Provider {
	case ai.ProviderGoogleAI:
		return googleai.NewProvider(ctx, cfg)
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func (b *Butler) wire(o *options) error {
	cfg := b.cfg
	if o.metrics {
		metrics.Register()
	}

	b.embedder = b.provider.Embedder()
	if cfg.Cache.Enabled {
		backend, err := badger.OpenBackend(cfg.Cache.Dir, cfg.Cache.Dir == "")
		if err != nil {
			return fmt.Errorf("opening embedding cache: %w", err)
		}
		b.backend = backend
		store, err := badger.NewEmbeddingCache(backend)
		if err != nil {
			return fmt.Errorf("opening embedding cache: %w", err)
		}
		cacheOpts := []cache.Option{cache.WithLogger(b.logger.With("component", "embedding-cache"))}
		if o.metrics {
			cacheOpts = append(cacheOpts, cache.WithCounter(metrics.EmbeddingCacheTotal))
		}
		cached, err := cache.New(b.embedder, store, cfg.AI.EmbeddingModel, cacheOpts...)
		if err != nil {
			return err
		}
		b.embedder = cached
	}

	cities := intent.NewCityResolver(cfg.Classifier.CityAliases)
	classifierOpts := []intent.Option{
		intent.WithLogger(b.logger.With("component", "classifier")),
		intent.WithThreshold(cfg.Classifier.Threshold),
		intent.WithSlotExtractor(intent.NewSlotExtractor(cities,
			cfg.Classifier.IngredientStopPhrases, cfg.Classifier.SubstituteStopPhrases)),
	}
	if o.metrics {
		classifierOpts = append(classifierOpts, intent.WithMetrics(metrics.ClassificationsTotal, metrics.ClassificationScore))
	}
	classifier, err := intent.NewClassifier(b.embedder, cfg.Classifier.KnowledgeBase, classifierOpts...)
	if err != nil {
		return fmt.Errorf("creating classifier: %w", err)
	}
	b.classifier = classifier

	retrieverOpts := []recipes.Option{
		recipes.WithLogger(b.logger.With("component", "recipes")),
		recipes.WithThreshold(cfg.Recipes.Threshold),
	}
	switch {
	case o.source != nil:
		retrieverOpts = append(retrieverOpts, recipes.WithSource(o.source))
	case cfg.Recipes.SourceURL != "":
		client := &http.Client{Timeout: cfg.Recipes.FetchTimeout.Duration}
		retrieverOpts = append(retrieverOpts, recipes.WithSource(recipes.NewHTTPSource(cfg.Recipes.SourceURL, client)))
	}
	if cfg.Recipes.CachePath != "" {
		retrieverOpts = append(retrieverOpts, recipes.WithCache(recipes.NewFileCache(cfg.Recipes.CachePath)))
	}
	if cfg.Recipes.Conversion == config.ConversionS2T {
		n, err := recipes.NewOpenCCNormalizer()
		if err != nil {
			return fmt.Errorf("loading s2t conversion: %w", err)
		}
		retrieverOpts = append(retrieverOpts, recipes.WithNormalizer(n))
	}
	if o.metrics {
		retrieverOpts = append(retrieverOpts, recipes.WithMetrics(metrics.RetrievalsTotal))
	}
	retriever, err := recipes.NewRetriever(b.embedder, retrieverOpts...)
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}
	retriever.OnLoaded(classifier.OnRecipesLoaded)
	b.retriever = retriever

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(b.logger.With("component", "dispatch")),
		dispatch.WithTimeout(cfg.AI.CallTimeout.Duration),
	}
	if o.metrics {
		dispatchOpts = append(dispatchOpts, dispatch.WithMetrics(metrics.GenerationAttemptsTotal, metrics.GenerationExhaustedTotal))
	}
	dispatcher, err := dispatch.NewDispatcher(b.provider.Backends(), dispatchOpts...)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	b.dispatcher = dispatcher

	assistantOpts := append([]assistant.Option{
		assistant.WithPoolSize(cfg.Assistant.Workers),
		assistant.WithLogger(b.logger.With("component", "assistant")),
		assistant.WithCityResolver(cities),
		assistant.WithHomeCity(cfg.Assistant.HomeCity),
	}, o.assistantOpts...)
	asst, err := assistant.New(classifier, retriever, dispatcher, assistantOpts...)
	if err != nil {
		return fmt.Errorf("creating assistant: %w", err)
	}
	b.assistant = asst
	return nil
}

// ClassifyAndExtract routes text to an intent and fills its slots.
func (b *Butler) ClassifyAndExtract(ctx context.Context, text string) (core.Classification, error) {
	return b.classifier.Classify(ctx, text)
}

// RetrieveDocument returns the recipe whose title best matches query.
// With recipes.ErrNoMatch the best candidate is still returned.
func (b *Butler) RetrieveDocument(ctx context.Context, query string) (core.RecipeMatch, error) {
	return b.retriever.Retrieve(ctx, query)
}

// Generate runs the prompt through the backends in priority order.
func (b *Butler) Generate(ctx context.Context, parts ...ai.Part) (string, error) {
	return b.dispatcher.Generate(ctx, parts...)
}

// EnsureDocumentsLoaded loads the recipe corpus once and feeds its titles
// to the classifier.
func (b *Butler) EnsureDocumentsLoaded(ctx context.Context) error {
	return b.retriever.EnsureLoaded(ctx)
}

// RefreshDocuments re-fetches the corpus from the source.
func (b *Butler) RefreshDocuments(ctx context.Context) error {
	return b.retriever.Refresh(ctx)
}

// Ask answers a user request on the assistant's worker pool.
func (b *Butler) Ask(ctx context.Context, req assistant.Request) (assistant.Reply, error) {
	return b.assistant.Ask(ctx, req)
}

// Reconfigure applies a reloaded configuration's knowledge base. Other
// settings take effect on restart.
func (b *Butler) Reconfigure(ctx context.Context, cfg *config.Config) error {
	if err := b.classifier.SetKnowledgeBase(ctx, cfg.Classifier.KnowledgeBase); err != nil {
		return fmt.Errorf("applying knowledge base: %w", err)
	}
	b.logger.Info("knowledge base reloaded", "entries", len(cfg.Classifier.KnowledgeBase))
	return nil
}

// WarmCache embeds every exemplar phrase and, when the corpus can be
// loaded, every recipe title, filling the embedding cache.
func (b *Butler) WarmCache(ctx context.Context, progress io.Writer, opts ...warmup.Option) (warmup.Stats, error) {
	texts := b.cfg.Classifier.KnowledgeBase.Phrases()
	if err := b.retriever.EnsureLoaded(ctx); err != nil {
		b.logger.Warn("recipe corpus unavailable, warming exemplars only", "err", err)
	} else {
		texts = append(texts, b.retriever.Titles()...)
	}

	base := []warmup.Option{
		warmup.WithProgress(progress),
		warmup.WithLogger(b.logger.With("component", "warmup")),
	}
	if n := b.cfg.AI.EmbeddingBatchSize; n > 0 {
		base = append(base, warmup.WithBatchSize(n))
	}
	opts = append(base, opts...)
	w, err := warmup.New(b.embedder, opts...)
	if err != nil {
		return warmup.Stats{}, err
	}
	return w.Run(ctx, texts)
}

// Classifier returns the intent classifier.
func (b *Butler) Classifier() *intent.Classifier {
	return b.classifier
}

// Retriever returns the recipe retriever.
func (b *Butler) Retriever() *recipes.Retriever {
	return b.retriever
}

// Dispatcher returns the generation dispatcher.
func (b *Butler) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Assistant returns the request handler.
func (b *Butler) Assistant() *assistant.Assistant {
	return b.assistant
}

// Close releases the worker pool, the embedding cache and the provider.
func (b *Butler) Close() error {
	if b.assistant != nil {
		b.assistant.Release()
	}

	var errs []error
	if b.provider != nil {
		if err := b.provider.Close(); err != nil {
			b.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if b.backend != nil {
		if err := b.backend.Close(); err != nil {
			b.logger.Error("error closing embedding cache", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
