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

package core

import (
	"fmt"
	"strings"
)

// ValidateRecipe validates a Recipe according to domain rules.
//
// Validation rules:
//   - Name must not be blank
func ValidateRecipe(recipe *Recipe) error {
	if recipe == nil {
		return fmt.Errorf("%w: recipe is nil", ErrInvalidRecipe)
	}
	if strings.TrimSpace(recipe.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecipe, ErrEmptyRecipeName)
	}
	return nil
}

// ValidateExemplar validates an Exemplar.
//
// Validation rules:
//   - Phrase must not be empty
//   - Intent must be known
//
// NOT validated:
//   - Vector (empty until embedded)
func ValidateExemplar(e *Exemplar) error {
	if e == nil {
		return fmt.Errorf("%w: exemplar is nil", ErrInvalidExemplar)
	}
	if e.Phrase == "" {
		return fmt.Errorf("%w: %w", ErrInvalidExemplar, ErrEmptyPhrase)
	}
	if err := ValidateIntent(e.Intent); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExemplar, err)
	}
	return nil
}

// ValidateIntent validates that an Intent is one of the known values.
func ValidateIntent(i Intent) error {
	if !i.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownIntent, string(i))
	}
	return nil
}

// ValidateDimensions checks that every vector has the same length.
// Returns that length, or 0 for an empty set.
func ValidateDimensions(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}
