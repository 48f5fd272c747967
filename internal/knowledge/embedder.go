package knowledge

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig holds configuration for the embedding client.
type EmbedderConfig struct {
	// BaseURL is the embedding API base URL (OpenAI or compatible).
	BaseURL string
	// APIKey is the bearer token for the endpoint.
	APIKey string
	// Model is the embedding model name.
	Model string
}

// Validate validates the configuration.
func (c EmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// NewEmbedder creates an Embedder backed by an OpenAI-compatible
// embedding endpoint via langchaingo.
func NewEmbedder(config EmbedderConfig) (Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	opts := []openai.Option{
		openai.WithBaseURL(config.BaseURL),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}
