package gateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"leadnorm/internal/usage"
)

// GeminiClient implements Classifier using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	tracker *usage.Tracker
}

// NewGeminiClient creates a Gemini-backed classifier.
func NewGeminiClient(ctx context.Context, apiKey, model string, tracker *usage.Tracker) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, tracker: tracker}, nil
}

// Classify sends the intent prompt and returns the sanitized answer.
func (c *GeminiClient) Classify(ctx context.Context, intent Intent, text string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt(intent, text)),
		&genai.GenerateContentConfig{
			MaxOutputTokens: maxAnswerRunes,
			Temperature:     genai.Ptr[float32](0.1),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	if c.tracker != nil && result.UsageMetadata != nil {
		c.tracker.Track(c.model,
			int(result.UsageMetadata.PromptTokenCount),
			int(result.UsageMetadata.CandidatesTokenCount))
	}

	answer := result.Text()
	if answer == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return sanitize(intent, text, answer), nil
}
