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

// Package ai provides abstractions for the AI services used by butler.
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Backend: One named generative model
//   - AIProvider: Aggregates an embedder and the ordered generation backends
//
// # Implementation Packages
//
//   - ai/googleai: Gemini models through langchaingo's googleai client
//   - ai/openai: OpenAI-compatible servers (Ollama, vLLM, LocalAI)
//   - ai/cache: Embedder decorator backed by a persistent vector cache
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (googleai.NewProvider, openai.NewEmbedder, etc.) return
// interface types. Mock constructors return concrete types so tests can
// inspect call counts and inject behavior.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("GOOGLE_API_KEY")))
//	provider, err := googleai.NewProvider(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "今天天氣如何")
//	text, err := provider.Backends()[0].Generate(ctx, []ai.Part{ai.TextPart("你好")})
package ai
