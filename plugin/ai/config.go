package ai

import (
	"errors"

	"github.com/otakulab/animesommelier/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	LLM       LLMConfig
	Embedding EmbeddingConfig
}

// LLMConfig represents completion model configuration.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // 1536
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		LLM: LLMConfig{
			APIKey:      p.LLMAPIKey,
			BaseURL:     p.LLMBaseURL,
			Model:       p.LLMModel,
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Model:      p.EmbeddingModel,
			Dimensions: 1536,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	return nil
}
