// Package intent routes utterances to one of a closed set of intents.
//
// A Classifier holds an Index: the knowledge base flattened into aligned
// rows of (phrase, intent, vector). Classification embeds the utterance and
// takes the nearest row by cosine similarity. A best score below the
// configured threshold yields core.FallbackIntent with that score.
//
// The index is immutable once built. Rebuilds, such as the one triggered
// when recipe titles arrive through OnRecipesLoaded, construct a new Index
// and swap it in atomically, so Classify never observes a partial index.
//
// SlotExtractor fills the per-intent parameters with deterministic rules,
// and CityResolver maps city aliases to canonical names.
package intent
