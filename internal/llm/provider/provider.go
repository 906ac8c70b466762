// Package provider builds the configured completion backend.
package provider

import (
	"context"
	"fmt"
	"os"

	"companion/internal/config"
	"companion/internal/domain"
	"companion/internal/llm"
	"companion/internal/llm/bedrock"
	"companion/internal/llm/offline"
	"companion/internal/llm/openai"
)

// New returns the completer selected by cfg.Provider, paced by cfg.RequestsPerSecond.
func New(ctx context.Context, cfg config.LLMConfig) (domain.Completer, error) {
	var c domain.Completer
	switch cfg.Provider {
	case "openai":
		oc := openai.Config{Model: cfg.Model}
		if cfg.OpenAI != nil {
			oc.BaseURL = cfg.OpenAI.BaseURL
			if cfg.OpenAI.APIKeyEnv != "" {
				oc.APIKey = os.Getenv(cfg.OpenAI.APIKeyEnv)
				if oc.APIKey == "" {
					return nil, fmt.Errorf("environment variable %s is not set", cfg.OpenAI.APIKeyEnv)
				}
			}
		}
		c = openai.New(oc)
	case "bedrock":
		region, modelID := "us-east-1", ""
		if cfg.Bedrock != nil {
			if cfg.Bedrock.Region != "" {
				region = cfg.Bedrock.Region
			}
			modelID = cfg.Bedrock.ModelID
		}
		bc, err := bedrock.New(ctx, region, modelID)
		if err != nil {
			return nil, err
		}
		c = bc
	case "offline":
		c = offline.New()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return llm.NewRateLimited(c, cfg.RequestsPerSecond), nil
}
