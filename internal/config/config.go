package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
	ProviderYandex LLMProvider = "yandex"
)

var ErrMissingKey = errors.New("required configuration is missing")

type Config struct {
	// LLM settings
	LLMProvider    LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey   string        `env:"OPENROUTER_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Model          string        `env:"LLM_MODEL" envDefault:"z-ai/glm-4.5-air:free"`
	Temperature    float32       `env:"LLM_TEMPERATURE" envDefault:"0.6"`
	RequestTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`

	// OpenRouter
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER" envDefault:"http://localhost:8501"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE" envDefault:"Asistente IA"`

	// Gemini
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`

	// Yandex
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Prompts
	SystemPrompt     string `env:"SYSTEM_PROMPT"`
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`
	ModelLabel       string `env:"MODEL_LABEL" envDefault:"GLM-4.5-AIR"`

	// Ledger
	LedgerEnabled         bool     `env:"LEDGER_ENABLED" envDefault:"true"`
	GoogleCredentialsJSON string   `env:"GOOGLE_CREDENTIALS_JSON"`
	GoogleCredentialsFile string   `env:"GOOGLE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	SpreadsheetName       string   `env:"SPREADSHEET_NAME" envDefault:"MensajesBot"`
	SpreadsheetID         string   `env:"SPREADSHEET_ID"`
	RecordKeys            []string `env:"RECORD_KEYS" envSeparator:"," envDefault:"nombre,email,comentario"`

	// Web
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8501"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`
	StatsCron   string `env:"STATS_CRON" envDefault:"0 21 * * *"`

	// Telegram (optional)
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Load parses the environment without exiting, mostly for tests.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(cfg.LLMProvider))))
	return cfg, nil
}

// Validate reports the first missing key required by the selected provider
// and ledger.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENROUTER_API_KEY", ErrMissingKey)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingKey)
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return fmt.Errorf("%w: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID", ErrMissingKey)
		}
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	if len(c.RecordKeys) != 3 {
		return fmt.Errorf("RECORD_KEYS must name exactly 3 keys, got %d", len(c.RecordKeys))
	}
	if c.LedgerEnabled && c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
		return fmt.Errorf("%w: GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE", ErrMissingKey)
	}
	return nil
}

// ResolveSystemPrompt returns the inline prompt, falling back to the prompt file.
func (c *Config) ResolveSystemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	if c.SystemPromptPath == "" {
		return ""
	}
	data, err := os.ReadFile(c.SystemPromptPath)
	if err != nil {
		log.Printf("system prompt file not found or unreadable at %s: %v", c.SystemPromptPath, err)
		return ""
	}
	return string(data)
}

// CredentialsJSON returns the service account key, inline value first.
func (c *Config) CredentialsJSON() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	data, err := os.ReadFile(c.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return data, nil
}
