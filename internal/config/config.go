package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// BedrockConfig holds configuration for AWS Bedrock.
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider          string         `yaml:"provider"`
	Model             string         `yaml:"model"`
	Temperature       float64        `yaml:"temperature"`
	MaxTokens         int            `yaml:"max_tokens"`
	TimeoutSecs       int            `yaml:"timeout_secs"`
	RequestsPerSecond float64        `yaml:"requests_per_second"`
	OpenAI            *OpenAIConfig  `yaml:"openai,omitempty"`
	Bedrock           *BedrockConfig `yaml:"bedrock,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type             string `yaml:"type"`
	TokenBudget      int    `yaml:"token_budget"`
	OverlapSentences int    `yaml:"overlap_sentences"`
	MinSentenceChars int    `yaml:"min_sentence_chars"`
	TrimOverlap      bool   `yaml:"trim_overlap"`
}

// TokenizerConfig configures token counting.
type TokenizerConfig struct {
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// PipelineConfig configures the simplification run.
type PipelineConfig struct {
	Audience    string `yaml:"audience"`
	Concurrency int    `yaml:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM       LLMConfig       `yaml:"llm"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	// Zero is a valid overlap, so seed it before decoding.
	cfg := AppConfig{Chunker: ChunkerConfig{OverlapSentences: defaultOverlapSentences}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/companion/config.yaml.
// If neither exists, it writes defaults to ~/.config/companion/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case "openai", "bedrock", "offline":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Chunker.Type != "token" {
		return fmt.Errorf("unknown chunker type %q", c.Chunker.Type)
	}
	if c.Chunker.TokenBudget < 1 {
		return fmt.Errorf("chunker.token_budget must be positive, got %d", c.Chunker.TokenBudget)
	}
	if c.Chunker.OverlapSentences < 0 {
		return fmt.Errorf("chunker.overlap_sentences must not be negative, got %d", c.Chunker.OverlapSentences)
	}
	return nil
}

const defaultOverlapSentences = 2

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "companion", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Temperature: 0.3,
			MaxTokens:   400,
			TimeoutSecs: 60,
		},
		Chunker:   ChunkerConfig{Type: "token", TokenBudget: 3000, OverlapSentences: defaultOverlapSentences, MinSentenceChars: 60},
		Tokenizer: TokenizerConfig{Model: "gpt-3.5-turbo", CacheSize: 16},
		Pipeline:  PipelineConfig{Audience: "10-year-old", Concurrency: 1},
		Server:    ServerConfig{Addr: ":8080"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 400
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.LLM.Provider == "openai" {
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIConfig{}
		}
		if cfg.LLM.OpenAI.BaseURL == "" {
			cfg.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.LLM.OpenAI.APIKeyEnv == "" {
			cfg.LLM.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.LLM.Provider == "bedrock" {
		if cfg.LLM.Bedrock == nil {
			cfg.LLM.Bedrock = &BedrockConfig{}
		}
		if cfg.LLM.Bedrock.Region == "" {
			cfg.LLM.Bedrock.Region = "us-east-1"
		}
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "token"
	}
	if cfg.Chunker.TokenBudget == 0 {
		cfg.Chunker.TokenBudget = 3000
	}
	if cfg.Chunker.MinSentenceChars == 0 {
		cfg.Chunker.MinSentenceChars = 60
	}
	if cfg.Tokenizer.Model == "" {
		cfg.Tokenizer.Model = cfg.LLM.Model
	}
	if cfg.Tokenizer.CacheSize == 0 {
		cfg.Tokenizer.CacheSize = 16
	}
	if cfg.Pipeline.Audience == "" {
		cfg.Pipeline.Audience = "10-year-old"
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 1
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
