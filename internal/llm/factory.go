package llm

import (
	"context"
	"fmt"
	"strings"

	"ledger-chat/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) CreateClient(ctx context.Context, provider string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      f.cfg.OpenAIAPIKey,
			BaseURL:     f.cfg.OpenAIBaseURL,
			Model:       f.cfg.Model,
			Temperature: f.cfg.Temperature,
			Referrer:    f.cfg.OpenRouterReferrer,
			Title:       f.cfg.OpenRouterTitle,
			Timeout:     f.cfg.RequestTimeout,
		}), nil
	case ProviderGemini:
		return NewGemini(ctx, GeminiConfig{
			APIKey:      f.cfg.GeminiAPIKey,
			Model:       f.cfg.GeminiModel,
			Temperature: f.cfg.Temperature,
			BaseURL:     f.cfg.GeminiBaseURL,
			Timeout:     f.cfg.RequestTimeout,
		})
	case ProviderYandex:
		return NewYandex(f.cfg.YandexOAuthToken, f.cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
