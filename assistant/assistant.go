package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/intent"
)

// Request is one inbound utterance.
type Request struct {
	UserID string
	Text   string
	// Near centers nearby searches. Optional.
	Near *Location
	// Attachments are forwarded to generation for free chat, e.g. images.
	Attachments []ai.Part
}

// Reply is the answer to a Request.
type Reply struct {
	Intent core.Intent
	Score  float32
	Slots  map[string]*string
	Text   string
	// Degraded is set when a fixed apology replaced the normal answer.
	Degraded bool
}

type handler func(ctx context.Context, req Request, c core.Classification) (string, bool)

// Assistant wires classification, retrieval and generation together.
type Assistant struct {
	classifier  Classifier
	retriever   Retriever
	generator   Generator
	weather     WeatherService
	preferences PreferenceStore
	places      PlacesService
	cities      *intent.CityResolver
	homeCity    string
	pool        *ants.Pool
	logger      *slog.Logger
	handlers    map[core.Intent]handler
}

// Option configures an Assistant.
type Option func(*Assistant) error

// WithPoolSize sets the number of concurrent requests.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Assistant) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithWeather sets the weather collaborator.
func WithWeather(w WeatherService) Option {
	return func(a *Assistant) error {
		if w != nil {
			a.weather = w
		}
		return nil
	}
}

// WithPreferences sets the user preference collaborator.
// Default is an empty MemoryPreferences.
func WithPreferences(p PreferenceStore) Option {
	return func(a *Assistant) error {
		if p != nil {
			a.preferences = p
		}
		return nil
	}
}

// WithPlaces sets the points-of-interest collaborator.
func WithPlaces(p PlacesService) Option {
	return func(a *Assistant) error {
		if p != nil {
			a.places = p
		}
		return nil
	}
}

// WithCityResolver sets the resolver used to normalize home cities.
func WithCityResolver(r *intent.CityResolver) Option {
	return func(a *Assistant) error {
		if r != nil {
			a.cities = r
		}
		return nil
	}
}

// WithHomeCity sets the city used when a user has none stored.
// Default is intent.DefaultCity.
func WithHomeCity(city string) Option {
	return func(a *Assistant) error {
		if city != "" {
			a.homeCity = city
		}
		return nil
	}
}

// New creates an assistant. Call Release when done.
func New(classifier Classifier, retriever Retriever, generator Generator, opts ...Option) (*Assistant, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	size := runtime.NumCPU()
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	a := &Assistant{
		classifier:  classifier,
		retriever:   retriever,
		generator:   generator,
		weather:     unconfiguredWeather{},
		preferences: NewMemoryPreferences(),
		places:      unconfiguredPlaces{},
		cities:      intent.NewCityResolver(nil),
		homeCity:    intent.DefaultCity,
		pool:        pool,
		logger:      slog.Default().With("component", "assistant"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			a.Release()
			return nil, err
		}
	}

	a.handlers = map[core.Intent]handler{
		core.IntentGreeting:             a.greeting,
		core.IntentWeather:              a.weatherReport,
		core.IntentClothingAdvice:       a.clothingAdvice,
		core.IntentSearchRecipe:         a.searchRecipe,
		core.IntentRandomRecipe:         a.randomRecipe,
		core.IntentSuggestByIngredients: a.suggestByIngredients,
		core.IntentFortune:              a.fortune,
		core.IntentSubstituteIngredient: a.substitute,
		core.IntentSearchNearby:         a.searchNearby,
		core.IntentChat:                 a.chat,
	}
	return a, nil
}

// Ask runs the request on the worker pool and waits for the reply.
// It blocks while the pool is saturated.
func (a *Assistant) Ask(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	done := make(chan Reply, 1)
	if err := a.pool.Submit(func() {
		done <- a.Handle(ctx, req)
	}); err != nil {
		return Reply{}, fmt.Errorf("submitting request: %w", err)
	}

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Handle answers the request on the calling goroutine. It never fails:
// errors become apologies.
func (a *Assistant) Handle(ctx context.Context, req Request) Reply {
	c, err := a.classifier.Classify(ctx, req.Text)
	if err != nil {
		a.logger.Error("classification failed", "err", err)
		return Reply{Intent: core.FallbackIntent, Slots: map[string]*string{}, Text: msgAIUnavailable, Degraded: true}
	}

	h, ok := a.handlers[c.Intent]
	if !ok {
		h = a.chat
	}
	text, degraded := h(ctx, req, c)
	return Reply{
		Intent:   c.Intent,
		Score:    c.Score,
		Slots:    c.Slots,
		Text:     text,
		Degraded: degraded,
	}
}

// Running returns the number of requests in flight.
func (a *Assistant) Running() int {
	return a.pool.Running()
}

// Release stops the worker pool. The assistant must not be used afterwards.
func (a *Assistant) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
