package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"docjudge/internal/logging"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements LLMClient on the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini transport.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// CompleteWithSystem sends one generation request and returns the text.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	startTime := time.Now()
	logging.OracleDebug("[Gemini] model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", classifyGenAI(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}

	logging.OracleDebug("[Gemini] completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}

// classifyGenAI maps SDK errors onto the package taxonomy using the HTTP
// code the API error carries. Errors without a code are connection-level
// and treated as transient.
func classifyGenAI(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return Classify(apiErr.Code, apiErr.Message)
	}
	return &RetryableError{Err: fmt.Errorf("request failed: %w", err)}
}
