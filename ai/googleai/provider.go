package googleai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/ai/internal/lcparts"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Provider implements ai.AIProvider using Gemini models.
type Provider struct {
	embedder *Embedder
	backends []ai.Backend
	clients  []*googleai.GoogleAI
	logger   *slog.Logger
}

// NewProvider creates clients for the embedding model and every generation
// model in priority order.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{logger: slog.Default().With("component", "googleai-provider")}

	embedClient, err := p.newClient(ctx, config, config.GenerationModels[0])
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(embedClient,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.EmbeddingBatchSize),
	)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.embedder = &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "googleai-embedder"),
	}

	for _, model := range config.GenerationModels {
		client, err := p.newClient(ctx, config, model)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.backends = append(p.backends, &Backend{
			name:   model,
			client: client,
			logger: slog.Default().With("component", "googleai-backend", "model", model),
		})
	}

	return p, nil
}

func (p *Provider) newClient(ctx context.Context, config *ai.Config, model string) (*googleai.GoogleAI, error) {
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	p.clients = append(p.clients, client)
	return client, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Backends returns the generation backends in priority order.
func (p *Provider) Backends() []ai.Backend {
	return p.backends
}

// Close closes every underlying client.
func (p *Provider) Close() error {
	p.logger.Debug("closing googleai provider", "clients", len(p.clients))
	var errs []error
	for _, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.clients = nil
	return errors.Join(errs...)
}

// Embedder implements ai.Embedder with Gemini embedding models.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, googleai.MapError(err)
	}
	if len(vectors) == 0 {
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	// EmbedDocuments strips newlines in place.
	input := append([]string(nil), texts...)
	vectors, err := e.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, googleai.MapError(err)
	}
	return vectors, nil
}

// Backend implements ai.Backend for one Gemini model.
type Backend struct {
	name   string
	client *googleai.GoogleAI
	logger *slog.Logger
}

// Name returns the model identifier.
func (b *Backend) Name() string {
	return b.name
}

// Generate sends the parts as one user message.
func (b *Backend) Generate(ctx context.Context, parts []ai.Part) (string, error) {
	b.logger.Debug("generating content", "parts", len(parts))

	resp, err := b.client.GenerateContent(ctx, lcparts.Messages(parts))
	if err != nil {
		return "", googleai.MapError(err)
	}
	return lcparts.Text(resp)
}
