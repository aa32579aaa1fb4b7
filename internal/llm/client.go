package llm

import (
	"context"
	"time"
)

// Generator is a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for a generation backend.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}
