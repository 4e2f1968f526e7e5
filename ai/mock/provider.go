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

package mock

import "github.com/poiesic/butler/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates a mock embedder and mock backends.
type MockProvider struct {
	embedder *MockEmbedder
	backends []*MockBackend
	closed   bool
}

// NewMockProvider creates a new mock provider with a default embedder and a
// single backend named "mock" that answers "ok".
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockBackends() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		backends: []*MockBackend{NewMockBackend("mock", "ok")},
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, backends ...*MockBackend) *MockProvider {
	return &MockProvider{
		embedder: embedder,
		backends: backends,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Backends returns the mock backends as ai.Backend values.
func (p *MockProvider) Backends() []ai.Backend {
	out := make([]ai.Backend, len(p.backends))
	for i, b := range p.backends {
		out[i] = b
	}
	return out
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockBackends returns the underlying mock backends for test assertions.
func (p *MockProvider) GetMockBackends() []*MockBackend {
	return p.backends
}
