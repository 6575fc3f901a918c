package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type CompareMode string

const (
	// ModeHTTP forwards prompts to the comparison backend.
	ModeHTTP CompareMode = "http"
	// ModeDirect asks both models in-process.
	ModeDirect CompareMode = "direct"
)

type Config struct {
	// Comparison backend
	APIURL         string        `env:"VERDE_API_URL" envDefault:"http://localhost:5000"`
	CompareMode    CompareMode   `env:"COMPARE_MODE" envDefault:"http"`
	CompareTimeout time.Duration `env:"COMPARE_TIMEOUT" envDefault:"60s"`

	// Telegram
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserID      int64  `env:"ADMIN_USER"`

	// LLM settings for direct mode
	VerdeProvider    string `env:"VERDE_PROVIDER" envDefault:"openai"`
	VerdeModel       string `env:"VERDE_MODEL" envDefault:"gpt-4o-mini"`
	ChatGPTModel     string `env:"CHATGPT_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Daily report schedule, UTC
	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CompareMode {
	case ModeHTTP:
		if c.APIURL == "" {
			return fmt.Errorf("VERDE_API_URL must be set in %s mode", ModeHTTP)
		}
	case ModeDirect:
	default:
		return fmt.Errorf("unknown compare mode: %q", c.CompareMode)
	}
	if c.CompareTimeout < 0 {
		return fmt.Errorf("COMPARE_TIMEOUT must not be negative")
	}
	return nil
}
