package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companion/internal/config"
	"companion/internal/metrics"
)

func offlineConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	cfg.LLM.Provider = "offline"
	cfg.Chunker.TokenBudget = 60
	return cfg
}

func TestBuild_OfflinePipeline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	svc, err := Build(context.Background(), offlineConfig(t), logger, m)
	require.NoError(t, err)

	text := strings.Repeat("The heart pumps blood through the body every second of the day. ", 20)
	res, err := svc.Simplify(context.Background(), text)
	require.NoError(t, err)
	assert.True(t, res.Chunked)
	assert.GreaterOrEqual(t, len(res.Parts), 2)
	assert.True(t, strings.HasPrefix(res.Parts[0], "## Part 1\n"))
	assert.NotEmpty(t, res.Overall)

	assert.Equal(t, float64(len(res.Parts)), testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("offline", "rewrite", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("offline", "simplify", "ok")))
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.LLM.Provider = "nope"
	_, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.Error(t, err)
}

func TestNewTokenizerAndChunker_NeedNoCredentials(t *testing.T) {
	cfg, err := config.Load(t.TempDir() + "/missing.yaml")
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.LLM.Provider)
	t.Setenv(cfg.LLM.OpenAI.APIKeyEnv, "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err = Build(context.Background(), cfg, logger, nil)
	require.Error(t, err)

	tok := NewTokenizer(cfg, logger)
	assert.Equal(t, 2, tok.Count("Hello world", cfg.Tokenizer.Model))

	text := strings.Repeat("The heart pumps blood through the body every second of the day. ", 20)
	chunks := NewChunker(cfg, tok).Chunks(text, cfg.Tokenizer.Model, 60, cfg.Chunker.OverlapSentences)
	assert.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 2, chunks[1].Overlap)
}
