package intent

import (
	"sort"
	"strings"

	"github.com/poiesic/butler/core"
)

// DefaultIngredientStopPhrases are stripped from suggest_by_ingredients
// utterances.
func DefaultIngredientStopPhrases() []string {
	return []string{"冰箱", "只剩", "剩下", "只有", "我有", "可以做什麼", "料理", "推薦", "食材"}
}

// DefaultSubstituteStopPhrases are stripped from substitute_ingredient
// utterances.
func DefaultSubstituteStopPhrases() []string {
	return []string{"沒有", "缺", "少了", "可以用", "什麼", "代替", "替代", "換成", "怎麼辦"}
}

// SlotExtractor fills intent slots with fixed rules. It is safe for
// concurrent use.
type SlotExtractor struct {
	cities      *CityResolver
	ingredients *strings.Replacer
	substitutes *strings.Replacer
}

// NewSlotExtractor creates an extractor. Nil stop phrase lists use the
// defaults; a nil resolver uses the default alias table.
func NewSlotExtractor(cities *CityResolver, ingredientStops, substituteStops []string) *SlotExtractor {
	if cities == nil {
		cities = NewCityResolver(nil)
	}
	if ingredientStops == nil {
		ingredientStops = DefaultIngredientStopPhrases()
	}
	if substituteStops == nil {
		substituteStops = DefaultSubstituteStopPhrases()
	}
	return &SlotExtractor{
		cities:      cities,
		ingredients: stripper(ingredientStops),
		substitutes: stripper(substituteStops),
	}
}

// stripper removes every occurrence of every phrase. Longer phrases are
// tried first at each position, so the result does not depend on list order.
func stripper(phrases []string) *strings.Replacer {
	sorted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p != "" {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	args := make([]string, 0, 2*len(sorted))
	for _, p := range sorted {
		args = append(args, p, "")
	}
	return strings.NewReplacer(args...)
}

// Cities returns the resolver used for location slots.
func (e *SlotExtractor) Cities() *CityResolver {
	return e.cities
}

// Extract returns the slots for intent, keyed by intent.Slots(). Location
// slots hold nil when no city is mentioned. Intents without slots get an
// empty map.
func (e *SlotExtractor) Extract(i core.Intent, utterance string) map[string]*string {
	names := i.Slots()
	slots := make(map[string]*string, len(names))
	for _, name := range names {
		slots[name] = e.fill(name, utterance)
	}
	return slots
}

func (e *SlotExtractor) fill(name, utterance string) *string {
	var v string
	switch name {
	case core.SlotLocation:
		city, ok := e.cities.Find(utterance)
		if !ok {
			return nil
		}
		v = city
	case core.SlotKeyword:
		v = utterance
	case core.SlotIngredients:
		v = strip(e.ingredients, utterance)
	case core.SlotTarget:
		v = strip(e.substitutes, utterance)
	default:
		return nil
	}
	return &v
}

// strip removes stop phrases until none is left, including ones that only
// appear after a removal.
func strip(r *strings.Replacer, utterance string) string {
	out := utterance
	for {
		next := r.Replace(out)
		if next == out {
			break
		}
		out = next
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return utterance
	}
	return out
}
