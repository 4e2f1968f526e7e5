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

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecipe indicates a Recipe failed validation.
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrEmptyRecipeName indicates the recipe Name field is empty.
	ErrEmptyRecipeName = errors.New("recipe name cannot be empty")

	// ErrInvalidExemplar indicates an Exemplar failed validation.
	ErrInvalidExemplar = errors.New("invalid exemplar")

	// ErrEmptyPhrase indicates an exemplar phrase is empty.
	ErrEmptyPhrase = errors.New("phrase cannot be empty")

	// ErrUnknownIntent indicates an intent outside the known set.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrDimensionMismatch indicates vectors of different lengths in one index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidVector indicates a vector with NaN or infinite values.
	ErrInvalidVector = errors.New("invalid vector")
)
