package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/recipes"
)

// generate sends the prompt through the generator and substitutes apology
// on failure.
func (a *Assistant) generate(ctx context.Context, apology string, parts ...ai.Part) (string, bool) {
	text, err := a.generator.Generate(ctx, parts...)
	if err != nil {
		a.logger.Error("generation failed", "err", err)
		return apology, true
	}
	return text, false
}

func (a *Assistant) greeting(_ context.Context, _ Request, _ core.Classification) (string, bool) {
	return greetingText, false
}

func (a *Assistant) chat(ctx context.Context, req Request, _ core.Classification) (string, bool) {
	parts := append([]ai.Part{ai.TextPart(chatPrompt(req.Text))}, req.Attachments...)
	return a.generate(ctx, msgAIUnavailable, parts...)
}

// homeCityOf returns the user's stored home city, or the default.
func (a *Assistant) homeCityOf(ctx context.Context, userID string) string {
	if userID == "" {
		return a.homeCity
	}
	stored, err := a.preferences.HomeCity(ctx, userID)
	if err != nil {
		a.logger.Warn("reading home city failed", "user", userID, "err", err)
		return a.homeCity
	}
	if stored != "" {
		if city, ok := a.cities.Normalize(stored); ok {
			return city
		}
	}
	return a.homeCity
}

// cityFor prefers the location slot and falls back to the user's home city.
func (a *Assistant) cityFor(ctx context.Context, req Request, c core.Classification) string {
	if city, ok := c.Slot(core.SlotLocation); ok {
		return city
	}
	return a.homeCityOf(ctx, req.UserID)
}

func (a *Assistant) weatherReport(ctx context.Context, req Request, c core.Classification) (string, bool) {
	city := a.cityFor(ctx, req, c)
	f, err := a.weather.Forecast(ctx, city)
	if err != nil {
		a.logger.Warn("weather lookup failed", "city", city, "err", err)
		return weatherUnavailable(city), true
	}
	return f.FullText, false
}

func (a *Assistant) clothingAdvice(ctx context.Context, req Request, c core.Classification) (string, bool) {
	city := a.cityFor(ctx, req, c)
	f, err := a.weather.Forecast(ctx, city)
	if err != nil {
		a.logger.Warn("weather lookup failed", "city", city, "err", err)
		return weatherUnavailable(city), true
	}

	prefs := msgNoPreferences
	if req.UserID != "" {
		stored, err := a.preferences.Preferences(ctx, req.UserID)
		if err != nil {
			a.logger.Warn("reading preferences failed", "user", req.UserID, "err", err)
		} else if stored != "" {
			prefs = stored
		}
	}
	return a.generate(ctx, msgAIUnavailable, ai.TextPart(clothingPrompt(f.FullText, prefs)))
}

func (a *Assistant) searchRecipe(ctx context.Context, req Request, c core.Classification) (string, bool) {
	query, ok := c.Slot(core.SlotKeyword)
	if !ok {
		query = req.Text
	}

	match, err := a.retriever.Retrieve(ctx, query)
	switch {
	case errors.Is(err, recipes.ErrNoMatch):
		return recipeNotFound(query), false
	case err != nil:
		a.logger.Warn("recipe retrieval failed", "query", query, "err", err)
		return msgRecipeIndexMissing, true
	}

	dish, err := encodeRecipe(match.Recipe)
	if err != nil {
		a.logger.Error("encoding recipe failed", "recipe", match.Recipe.Name, "err", err)
		return msgRecipeGenerationFailed, true
	}
	return a.generate(ctx, msgRecipeGenerationFailed, ai.TextPart(recipeTutorialPrompt(dish)))
}

func (a *Assistant) randomRecipe(ctx context.Context, _ Request, _ core.Classification) (string, bool) {
	dish, err := a.retriever.Random(ctx)
	if err != nil {
		a.logger.Warn("random recipe failed", "err", err)
		return msgRecipeNotLoaded, true
	}
	return randomRecipeText(dish.Name, dish.Description), false
}

func (a *Assistant) suggestByIngredients(ctx context.Context, req Request, c core.Classification) (string, bool) {
	ingredients, ok := c.Slot(core.SlotIngredients)
	if !ok {
		ingredients = req.Text
	}
	if err := a.retriever.EnsureLoaded(ctx); err != nil {
		a.logger.Warn("recipe corpus not loaded", "err", err)
	}
	return a.generate(ctx, msgIngredientsFailed, ai.TextPart(ingredientsPrompt(ingredients, a.retriever.Titles())))
}

func (a *Assistant) fortune(ctx context.Context, req Request, _ core.Classification) (string, bool) {
	city := a.homeCityOf(ctx, req.UserID)
	weather := msgUnknownWeather
	if f, err := a.weather.Forecast(ctx, city); err == nil && f.FullText != "" {
		weather = f.FullText
	}
	return a.generate(ctx, msgFortuneFailed, ai.TextPart(fortunePrompt(weather, req.Text)))
}

func (a *Assistant) substitute(ctx context.Context, req Request, c core.Classification) (string, bool) {
	target, ok := c.Slot(core.SlotTarget)
	if !ok {
		target = req.Text
	}
	return a.generate(ctx, msgSubstituteFailed, ai.TextPart(substitutePrompt(target)))
}

func (a *Assistant) searchNearby(ctx context.Context, req Request, c core.Classification) (string, bool) {
	var near Location
	switch {
	case req.Near != nil:
		near = *req.Near
	default:
		city, ok := c.Slot(core.SlotLocation)
		if !ok {
			return msgNeedLocation, false
		}
		near = Location{City: city}
	}

	places, err := a.places.Nearby(ctx, near)
	if err != nil {
		a.logger.Warn("nearby search failed", "err", err)
		return msgTourGuideFailed, true
	}
	if len(places) == 0 {
		return msgNoPlaces, false
	}
	return a.generate(ctx, msgTourGuideFailed, ai.TextPart(tourGuidePrompt(places)))
}

// encodeRecipe renders the recipe as compact JSON without HTML escaping.
func encodeRecipe(r *core.Recipe) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
