package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
)

// Supported provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// NewGenerator creates a backend for the configured provider. It returns a nil
// Generator and no error when no API key is configured, which puts the
// classifier into degraded mode.
func NewGenerator(cfg Config) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		return newGeminiClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}

// Close releases resources held by a generator, if it holds any.
func Close(g Generator) error {
	if closer, ok := g.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
