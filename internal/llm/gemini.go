package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
	Timeout time.Duration
}

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(nil, cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	contents, gcfg := buildGeminiRequest(messages, c.temperature)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gcfg)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate content failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Response{}, ErrEmptyResponse
	}
	out := Response{Content: resp.Candidates[0].Content.Parts[0].Text, Model: c.model}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

// buildGeminiRequest maps turns onto contents. System turns go to the
// system instruction and "assistant" becomes "model".
func buildGeminiRequest(messages []Message, temperature float32) ([]*genai.Content, *genai.GenerateContentConfig) {
	gcfg := &genai.GenerateContentConfig{Temperature: &temperature}
	var (
		contents []*genai.Content
		system   []*genai.Part
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if m.Content != "" {
				system = append(system, &genai.Part{Text: m.Content})
			}
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	if len(system) > 0 {
		gcfg.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, gcfg
}
