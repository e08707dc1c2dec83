package llm

import (
	"context"
	"strings"
	"testing"

	"ledger-chat/internal/config"
)

func TestFactoryCreateClient(t *testing.T) {
	f := NewFactory(&config.Config{
		OpenAIAPIKey:  "k",
		OpenAIBaseURL: "http://localhost",
		Model:         "m",
		GeminiAPIKey:  "g",
		GeminiModel:   "gemini-test",
		GeminiBaseURL: "http://localhost/",
	})

	c, err := f.CreateClient(context.Background(), "OpenAI")
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("want *OpenAIClient, got %T", c)
	}

	c, err = f.CreateClient(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, ok := c.(*GeminiClient); !ok {
		t.Fatalf("want *GeminiClient, got %T", c)
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := NewFactory(&config.Config{}).CreateClient(context.Background(), "claude")
	if err == nil || !strings.Contains(err.Error(), "unknown llm provider") {
		t.Fatalf("want unknown provider error, got %v", err)
	}
}
