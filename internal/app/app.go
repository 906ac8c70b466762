// Package app assembles the simplification pipeline from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"companion/internal/chunker"
	"companion/internal/config"
	"companion/internal/domain"
	"companion/internal/llm/provider"
	"companion/internal/metrics"
	"companion/internal/rewrite"
	"companion/internal/service"
	"companion/internal/tokenizer"
)

// Build wires the tokenizer, chunker, completion backend and service described by cfg.
// m may be nil.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, m *metrics.Metrics) (*service.SimplifyService, error) {
	completer, err := provider.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	completer = metrics.Instrument(completer, m)

	simplifier := rewrite.New(completer, rewrite.Options{
		MaxTokens:        cfg.LLM.MaxTokens,
		ChunkTemperature: cfg.LLM.Temperature,
		Timeout:          time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	tok := NewTokenizer(cfg, logger)

	logger.Info("pipeline ready",
		"provider", completer.Name(),
		"model", cfg.LLM.Model,
		"token_budget", cfg.Chunker.TokenBudget,
		"overlap", cfg.Chunker.OverlapSentences,
	)
	return service.NewSimplifyService(tok, NewChunker(cfg, tok), simplifier, service.Options{
		Audience:    cfg.Pipeline.Audience,
		ModelID:     cfg.Tokenizer.Model,
		TokenBudget: cfg.Chunker.TokenBudget,
		Overlap:     cfg.Chunker.OverlapSentences,
		Concurrency: cfg.Pipeline.Concurrency,
		Tutor:       simplifier,
		Logger:      logger,
		Metrics:     m,
	}), nil
}

// NewTokenizer builds the token counter described by cfg. It needs no
// completion backend, so token counts and chunk previews work offline.
func NewTokenizer(cfg *config.AppConfig, logger *slog.Logger) *tokenizer.Tiktoken {
	return tokenizer.New(tokenizer.Config{CacheSize: cfg.Tokenizer.CacheSize, Logger: logger})
}

func NewChunker(cfg *config.AppConfig, tok domain.Tokenizer) *chunker.TokenChunker {
	return chunker.NewTokenChunker(tok, cfg.Chunker.MinSentenceChars).WithTrimmedOverlap(cfg.Chunker.TrimOverlap)
}
