package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient implements Generator for the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGeminiClient(cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(cfg.Temperature))
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens)) //nolint:gosec // small configured value
	}

	return &geminiClient{client: client, model: model}, nil
}

// Generate sends the prompt to Gemini and joins the text parts of the first candidate.
func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", common.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", common.ErrEmptyResponse
	}
	return sb.String(), nil
}

// Close releases the underlying gRPC connection.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
