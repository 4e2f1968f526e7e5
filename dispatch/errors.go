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

package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBackends is returned when a dispatcher is created without backends.
	ErrNoBackends = errors.New("at least one generation backend required")

	// ErrGenerationExhausted is returned when every backend failed.
	ErrGenerationExhausted = errors.New("all generation backends failed")
)

// Attempt records one failed backend call.
type Attempt struct {
	Backend  string
	Category Category
	Err      error
}

// ExhaustedError reports every failed attempt of one Generate call.
// It matches ErrGenerationExhausted and the last attempt's error.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) last() Attempt {
	return e.Attempts[len(e.Attempts)-1]
}

func (e *ExhaustedError) Error() string {
	last := e.last()
	return fmt.Sprintf("%s (%d tried: %s); last error from %s: %v",
		ErrGenerationExhausted, len(e.Attempts), e.summary(), last.Backend, last.Err)
}

func (e *ExhaustedError) summary() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Backend + "=" + string(a.Category)
	}
	return strings.Join(parts, ", ")
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrGenerationExhausted, e.last().Err}
}
