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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Provider kinds understood by NewConfig consumers.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the backend family: "googleai" or "openai".
	Provider string

	// APIKey authenticates against the provider. Local OpenAI-compatible
	// servers accept any token, so it may be empty for "openai".
	APIKey string

	// EmbeddingHost is the base URL for the embedding service API.
	// Only used by the "openai" provider.
	// Example: "http://localhost:11434/v1"
	EmbeddingHost string

	// GenerationHost is the base URL for the generation service API.
	// Only used by the "openai" provider.
	GenerationHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-004", "bge-m3"
	EmbeddingModel string

	// GenerationModels lists generation model identifiers in priority order.
	// The dispatcher tries them front to back.
	GenerationModels []string

	// CallTimeout bounds a single generation attempt. Zero disables it.
	CallTimeout time.Duration

	// EmbeddingBatchSize caps how many texts go into one embedding request.
	// Default: 64
	EmbeddingBatchSize int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider family.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithGenerationHost sets the generation service host URL.
func WithGenerationHost(host string) ConfigOption {
	return func(c *Config) {
		c.GenerationHost = host
	}
}

// WithHost sets both embedding and generation hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.GenerationHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGenerationModels replaces the generation priority list.
func WithGenerationModels(models ...string) ConfigOption {
	return func(c *Config) {
		c.GenerationModels = append([]string(nil), models...)
	}
}

// WithCallTimeout sets the per-attempt generation timeout.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithEmbeddingBatchSize sets the embedding request batch size.
func WithEmbeddingBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBatchSize = n
	}
}

// DefaultConfig returns a Config targeting Google's Gemini API.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:       ProviderGoogleAI,
		EmbeddingHost:  defaultHost,
		GenerationHost: defaultHost,
		EmbeddingModel: "text-embedding-004",
		GenerationModels: []string{
			"gemini-2.5-flash",
			"gemini-2.0-flash",
			"gemini-2.0-flash-lite",
		},
		CallTimeout:        30 * time.Second,
		EmbeddingBatchSize: 64,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("bge-m3"),
//	    WithGenerationModels("qwen2.5:7b", "llama3.1:8b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For the openai provider it adds the /v1 suffix to hosts if missing, which
// most OpenAI-compatible servers (Ollama, LocalAI, vLLM) require.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider != ProviderOpenAI {
		return
	}
	c.EmbeddingHost = withV1Suffix(c.EmbeddingHost)
	c.GenerationHost = withV1Suffix(c.GenerationHost)
}

func withV1Suffix(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderGoogleAI:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for googleai")
		}
	case ProviderOpenAI:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.GenerationHost == "" {
			return errors.New("ai config: GenerationHost is required")
		}
	default:
		return errors.New("ai config: Provider must be googleai or openai")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if len(c.GenerationModels) == 0 {
		return errors.New("ai config: at least one GenerationModel is required")
	}
	for _, m := range c.GenerationModels {
		if strings.TrimSpace(m) == "" {
			return errors.New("ai config: GenerationModels must not contain blank names")
		}
	}
	if c.CallTimeout < 0 {
		return errors.New("ai config: CallTimeout must not be negative")
	}
	if c.EmbeddingBatchSize < 1 {
		return errors.New("ai config: EmbeddingBatchSize must be at least 1")
	}
	return nil
}
