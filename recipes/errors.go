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

package recipes

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrievalUnavailable is returned when the corpus is empty or
	// could not be loaded.
	ErrRetrievalUnavailable = errors.New("recipe retrieval unavailable")

	// ErrNoMatch is returned when no title clears the threshold.
	ErrNoMatch = errors.New("no matching recipe")

	// ErrCacheMiss is returned by FileCache.Load when there is nothing usable
	// in the cache file.
	ErrCacheMiss = errors.New("recipe cache miss")

	// ErrCacheCorrupt is returned by FileCache.Load when the cache file
	// exists but cannot be read or decoded.
	ErrCacheCorrupt = errors.New("recipe cache corrupt")

	// ErrFetchFailed is returned when the remote source cannot be read.
	ErrFetchFailed = errors.New("recipe fetch failed")
)
