package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Intent is one of the closed set of application intents.
type Intent string

const (
	IntentGreeting             Intent = "greeting"
	IntentWeather              Intent = "weather"
	IntentClothingAdvice       Intent = "clothing_advice"
	IntentSearchRecipe         Intent = "search_recipe"
	IntentRandomRecipe         Intent = "random_recipe"
	IntentSuggestByIngredients Intent = "suggest_by_ingredients"
	IntentFortune              Intent = "fortune"
	IntentSubstituteIngredient Intent = "substitute_ingredient"
	IntentSearchNearby         Intent = "search_nearby"
	// IntentChat is the fallback for utterances below the confidence threshold.
	IntentChat Intent = "chat"
)

// FallbackIntent is returned when no exemplar clears the threshold.
const FallbackIntent = IntentChat

var knownIntents = []Intent{
	IntentGreeting,
	IntentWeather,
	IntentClothingAdvice,
	IntentSearchRecipe,
	IntentRandomRecipe,
	IntentSuggestByIngredients,
	IntentFortune,
	IntentSubstituteIngredient,
	IntentSearchNearby,
	IntentChat,
}

// Intents returns every known intent.
func Intents() []Intent {
	return append([]Intent(nil), knownIntents...)
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	for _, k := range knownIntents {
		if k == i {
			return true
		}
	}
	return false
}

// Slot names filled by the slot extractor.
const (
	SlotLocation    = "location"
	SlotKeyword     = "keyword"
	SlotIngredients = "ingredients"
	SlotTarget      = "target"
)

// Slots returns the slot names the intent owns, if any.
func (i Intent) Slots() []string {
	switch i {
	case IntentWeather, IntentClothingAdvice, IntentSearchNearby:
		return []string{SlotLocation}
	case IntentSearchRecipe:
		return []string{SlotKeyword}
	case IntentSuggestByIngredients:
		return []string{SlotIngredients}
	case IntentSubstituteIngredient:
		return []string{SlotTarget}
	}
	return nil
}

// Exemplar is a hand-authored phrase anchoring one intent in vector space.
type Exemplar struct {
	Phrase string
	Intent Intent
	Vector []float32
}

// Classification is the outcome of routing one utterance.
// Slots holds nil for a slot the extractor tried but could not fill.
type Classification struct {
	Intent Intent
	Score  float32
	Slots  map[string]*string
}

// Slot returns the value of a filled slot.
func (c Classification) Slot(name string) (string, bool) {
	v, ok := c.Slots[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Recipe is one document of the recipe corpus. Only Name is required.
// Fields other than name, description and ingredients are preserved as-is.
type Recipe struct {
	Name        string
	Description string
	Ingredients string
	Extra       map[string]json.RawMessage
}

var recipeKnownFields = map[string]bool{"name": true, "description": true, "ingredients": true}

// UnmarshalJSON accepts any JSON shape for ingredients and renders it to text.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Recipe{}
	if v, ok := raw["name"]; ok {
		r.Name = renderText(v)
	}
	if v, ok := raw["description"]; ok {
		r.Description = renderText(v)
	}
	if v, ok := raw["ingredients"]; ok {
		r.Ingredients = renderText(v)
	}
	for k, v := range raw {
		if recipeKnownFields[k] {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes known fields first, then extras in key order, so the
// same recipe always serializes to the same bytes.
func (r Recipe) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}

	for _, f := range []struct{ key, value string }{
		{"name", r.Name},
		{"description", r.Description},
		{"ingredients", r.Ingredients},
	} {
		if f.key != "name" && f.value == "" {
			continue
		}
		v, err := marshalNoEscape(f.value)
		if err != nil {
			return nil, err
		}
		write(f.key, v)
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// renderText turns a JSON value into display text. Strings are unquoted,
// arrays of scalars are joined with "、", anything else keeps its JSON form.
func renderText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var list []any
	if err := json.Unmarshal(v, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			switch x := item.(type) {
			case string:
				parts = append(parts, x)
			default:
				b, _ := json.Marshal(x)
				parts = append(parts, string(b))
			}
		}
		return strings.Join(parts, "、")
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RecipeMatch is a retrieval hit.
type RecipeMatch struct {
	Recipe *Recipe
	Score  float32
}
