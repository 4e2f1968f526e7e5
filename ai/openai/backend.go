package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/ai/internal/lcparts"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Backend implements ai.Backend for one model on an OpenAI-compatible server.
type Backend struct {
	name   string
	client llms.Model
	logger *slog.Logger
}

func newBackend(config *ai.Config, model string) (*Backend, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(token(config)),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	return &Backend{
		name:   model,
		client: client,
		logger: slog.Default().With("component", "openai-backend", "model", model),
	}, nil
}

// NewBackend creates a generation backend for a single model.
func NewBackend(config *ai.Config, model string) (ai.Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newBackend(config, model)
}

// Name returns the model identifier.
func (b *Backend) Name() string {
	return b.name
}

// Generate sends the parts as one user message. Errors are mapped onto
// langchaingo's standardized error codes.
func (b *Backend) Generate(ctx context.Context, parts []ai.Part) (string, error) {
	b.logger.Debug("generating content", "parts", len(parts))

	resp, err := b.client.GenerateContent(ctx, lcparts.Messages(parts))
	if err != nil {
		return "", openai.MapError(err)
	}
	return lcparts.Text(resp)
}
