// Package llm wraps chat completion providers behind a small interface.
//
// The OpenAI client works against any OpenAI-compatible endpoint, which
// covers both api.openai.com and Groq's compatibility layer. Consumers
// depend on Client so tests can substitute canned completions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyCompletion indicates the provider returned no usable text.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
)

// Client produces a completion for a system prompt plus one user message.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config holds configuration for an OpenAI-compatible completion client.
type Config struct {
	// BaseURL is the API base URL (OpenAI, Groq, or a local gateway).
	BaseURL string
	// APIKey is the bearer token for the endpoint.
	APIKey string
	// Model is the completion model name.
	Model string
	// Temperature controls sampling randomness.
	Temperature float64
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// OpenAIClient is a Client backed by langchaingo's OpenAI model.
type OpenAIClient struct {
	model  *openai.LLM
	config Config
}

// NewOpenAIClient creates a completion client for an OpenAI-compatible endpoint.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	opts := []openai.Option{
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAIClient{model: model, config: config}, nil
}

// Complete runs a single-turn chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.config.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
