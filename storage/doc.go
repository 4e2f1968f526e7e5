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

// Package storage provides the storage abstraction layer for butler.
//
// The only persisted state owned by butler itself is the embedding cache:
// vectors for exemplar phrases and recipe titles, keyed by model and text,
// so restarts don't re-embed the whole knowledge base.
//
// Public constructors return the storage.EmbeddingCache interface:
//
//	cache, err := badger.NewEmbeddingCache(backend)
//
// Use in tests with in-memory storage:
//
//	cache, backend, err := badger.NewMemoryCache()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer backend.Close()
package storage
