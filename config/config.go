// Package config loads butler's YAML configuration.
//
// A file is overlaid on Default(): keys that are absent keep their default
// value, sequences that are present replace the default sequence. Values
// may reference environment variables as ${VAR}.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/intent"
	"github.com/poiesic/butler/recipes"
	"gopkg.in/yaml.v3"
)

//go:embed knowledge_base.yaml
var defaultKnowledgeBase []byte

// Duration wraps time.Duration with YAML unmarshaling from strings like "45s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the top-level butler configuration.
type Config struct {
	AI         AIConfig         `yaml:"ai"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Recipes    RecipesConfig    `yaml:"recipes"`
	Cache      CacheConfig      `yaml:"cache"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Server     ServerConfig     `yaml:"server"`
}

// AIConfig selects the embedding and generation services.
type AIConfig struct {
	Provider           string   `yaml:"provider"`
	APIKey             string   `yaml:"api_key"`
	EmbeddingHost      string   `yaml:"embedding_host"`
	GenerationHost     string   `yaml:"generation_host"`
	EmbeddingModel     string   `yaml:"embedding_model"`
	GenerationModels   []string `yaml:"generation_models"` // priority order
	CallTimeout        Duration `yaml:"call_timeout"`
	EmbeddingBatchSize int      `yaml:"embedding_batch_size"`
}

// ClassifierConfig holds the intent knowledge base and slot rules.
type ClassifierConfig struct {
	Threshold             float32              `yaml:"threshold"`
	KnowledgeBase         intent.KnowledgeBase `yaml:"knowledge_base"`
	CityAliases           []intent.CityAlias   `yaml:"city_aliases"`
	IngredientStopPhrases []string             `yaml:"ingredient_stop_phrases"`
	SubstituteStopPhrases []string             `yaml:"substitute_stop_phrases"`
}

// RecipesConfig locates the recipe corpus.
type RecipesConfig struct {
	SourceURL    string   `yaml:"source_url"`
	CachePath    string   `yaml:"cache_path"`
	Threshold    float32  `yaml:"threshold"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
	// Conversion is "s2t" for Simplified to Traditional Chinese or "none".
	Conversion string `yaml:"conversion"`
}

// CacheConfig controls the persistent embedding cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir is the badger directory. Empty keeps the cache in memory.
	Dir string `yaml:"dir"`
}

// AssistantConfig sizes request handling.
type AssistantConfig struct {
	Workers  int    `yaml:"workers"`
	HomeCity string `yaml:"home_city"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

const (
	// ConversionS2T converts Simplified Chinese to Traditional Chinese.
	ConversionS2T = "s2t"
	// ConversionNone leaves recipe text unchanged.
	ConversionNone = "none"
)

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()

	var kb intent.KnowledgeBase
	if err := yaml.Unmarshal(defaultKnowledgeBase, &kb); err != nil {
		panic(fmt.Sprintf("embedded knowledge base: %v", err))
	}

	return &Config{
		AI: AIConfig{
			Provider:           aiDefaults.Provider,
			EmbeddingHost:      aiDefaults.EmbeddingHost,
			GenerationHost:     aiDefaults.GenerationHost,
			EmbeddingModel:     aiDefaults.EmbeddingModel,
			GenerationModels:   aiDefaults.GenerationModels,
			CallTimeout:        Duration{aiDefaults.CallTimeout},
			EmbeddingBatchSize: aiDefaults.EmbeddingBatchSize,
		},
		Classifier: ClassifierConfig{
			Threshold:             intent.DefaultThreshold,
			KnowledgeBase:         kb,
			CityAliases:           intent.DefaultCityAliases(),
			IngredientStopPhrases: intent.DefaultIngredientStopPhrases(),
			SubstituteStopPhrases: intent.DefaultSubstituteStopPhrases(),
		},
		Recipes: RecipesConfig{
			CachePath:    "recipes.json",
			Threshold:    recipes.DefaultThreshold,
			FetchTimeout: Duration{recipes.DefaultFetchTimeout},
			Conversion:   ConversionS2T,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Assistant: AssistantConfig{
			Workers:  16,
			HomeCity: intent.DefaultCity,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{2 * time.Minute},
		},
	}
}

// Load reads, expands env vars, parses, and validates a config file.
// An empty path returns the defaults with environment fallbacks applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse expands ${VAR} references in data and overlays it on cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// applyEnv fills unset secrets and locations from their conventional
// environment variables.
func (c *Config) applyEnv() {
	if c.Recipes.SourceURL == "" {
		c.Recipes.SourceURL = os.Getenv("RECIPES_URL")
	}
	if c.AI.APIKey != "" {
		return
	}
	switch c.AI.Provider {
	case ai.ProviderGoogleAI:
		c.AI.APIKey = os.Getenv("GOOGLE_API_KEY")
	case ai.ProviderOpenAI:
		c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ai: %w", err))
	}
	if c.Classifier.Threshold < -1 || c.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold %v outside [-1, 1]", c.Classifier.Threshold))
	}
	if err := c.Classifier.KnowledgeBase.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("classifier.knowledge_base: %w", err))
	}
	for i, a := range c.Classifier.CityAliases {
		if a.Alias == "" || a.City == "" {
			errs = append(errs, fmt.Errorf("classifier.city_aliases[%d]: alias and city are required", i))
		}
	}
	if c.Recipes.Threshold < -1 || c.Recipes.Threshold > 1 {
		errs = append(errs, fmt.Errorf("recipes.threshold %v outside [-1, 1]", c.Recipes.Threshold))
	}
	if c.Recipes.FetchTimeout.Duration <= 0 {
		errs = append(errs, errors.New("recipes.fetch_timeout must be positive"))
	}
	switch c.Recipes.Conversion {
	case ConversionS2T, ConversionNone:
	default:
		errs = append(errs, fmt.Errorf("recipes.conversion must be %q or %q, got %q", ConversionS2T, ConversionNone, c.Recipes.Conversion))
	}
	if c.Assistant.Workers < 1 {
		errs = append(errs, errors.New("assistant.workers must be at least 1"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	return errors.Join(errs...)
}

// AIConfig converts the ai section into an *ai.Config.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithProvider(c.AI.Provider),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModels(c.AI.GenerationModels...),
		ai.WithCallTimeout(c.AI.CallTimeout.Duration),
		ai.WithEmbeddingBatchSize(c.AI.EmbeddingBatchSize),
	)
	cfg.Normalize()
	return cfg
}
