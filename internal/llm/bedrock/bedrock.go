// Package bedrock implements a completer backed by Anthropic models on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"companion/internal/domain"
	"companion/internal/llm"
)

const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

const anthropicVersion = "bedrock-2023-05-31"

// invoker is the part of *bedrockruntime.Client the completer uses.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Completer struct {
	client  invoker
	modelID string
}

// New loads the default AWS credential chain for region.
func New(ctx context.Context, region, modelID string) (*Completer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cfg.RetryMaxAttempts = 1
	return newWithClient(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

func newWithClient(client invoker, modelID string) *Completer {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &Completer{client: client, modelID: modelID}
}

func (c *Completer) Name() string { return "bedrock" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
		Messages:         []message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to format request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		se := &llm.ServiceError{Provider: "bedrock", Op: "invoke model", Err: err}
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			se.StatusCode = respErr.HTTPStatusCode()
		}
		return "", se
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", &llm.ServiceError{Provider: "bedrock", Op: "decode response", Err: err}
	}
	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &llm.ServiceError{Provider: "bedrock", Op: "invoke model", Err: llm.ErrEmptyResponse}
	}
	return strings.TrimSpace(sb.String()), nil
}
