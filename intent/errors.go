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


package intent

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrClassificationUnavailable wraps failures to embed the utterance
	// or to build the index.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrInvalidThreshold is returned for thresholds outside [-1, 1].
	ErrInvalidThreshold = errors.New("threshold must be within [-1, 1]")

	// ErrInvalidKnowledgeBase is returned when the knowledge base names an
	// unknown intent or contains an empty phrase.
	ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")
)
