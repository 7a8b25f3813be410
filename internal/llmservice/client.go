package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var errEmptyResponse = errors.New("llm returned no choices")

// Client sends chat completions to the configured model.
type Client struct {
	model llms.Model
	cfg   config.LLMConfig
}

// NewClient builds the provider client once; it is safe for concurrent use.
func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().Interface("llmConfig", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Creating LLM client")

	var (
		model llms.Model
		err   error
	)
	switch llmConfig.Provider {
	case "", "openai":
		key := strings.TrimPrefix(llmConfig.Key, "Bearer ")
		if key == "" {
			return nil, fmt.Errorf("missing LLM API key: set GROQ_API_KEY or LLM_API_KEY")
		}
		opts := []openai.Option{openai.WithToken(key), openai.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", llmConfig.Provider, err)
	}
	return NewClientWithModel(model, llmConfig), nil
}

// NewClientWithModel wraps an already constructed model.
func NewClientWithModel(model llms.Model, llmConfig *config.LLMConfig) *Client {
	return &Client{model: model, cfg: *llmConfig}
}

// GenerateContent calls the model with the configured temperature, token limit and timeout
// and returns the text of the first choice.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithTemperature(c.cfg.Temperature)}
	if c.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
