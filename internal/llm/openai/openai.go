// Package openai implements a completer backed by the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"companion/internal/domain"
	"companion/internal/llm"
)

const DefaultModel = "gpt-3.5-turbo"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Completer sends chat completions to an OpenAI-compatible endpoint.
type Completer struct {
	client openai.Client
	model  string
}

func New(cfg Config) *Completer {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Completer{client: openai.NewClient(opts...), model: cfg.Model}
}

func (c *Completer) Name() string { return "openai" }

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		se := &llm.ServiceError{Provider: "openai", Op: "chat completion", Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			se.StatusCode = apiErr.StatusCode
		}
		return "", se
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ServiceError{Provider: "openai", Op: "chat completion", Err: llm.ErrEmptyResponse}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
