// Package config loads the aibolit configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ErrNoCredentials is returned when no Gemini API key is configured.
// The process must not start without at least one credential.
var ErrNoCredentials = errors.New("no Gemini API keys configured")

// Config is the full process configuration. Gemini keys come either from
// GEMINI_API_KEYS (comma-separated, ordered) or from the numbered slots the
// original deployment used; both are merged in order by Credentials.
type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`

	GeminiKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiKey1 string   `env:"GEMINI_API_KEY"`
	GeminiKey2 string   `env:"GEMINI_API_KEY_2"`
	GeminiKey3 string   `env:"GEMINI_API_KEY_3"`
	GeminiKey4 string   `env:"GEMINI_API_KEY_4"`
	GeminiKey5 string   `env:"GEMINI_API_KEY_5"`
	GeminiKey6 string   `env:"GEMINI_API_KEY_6"`

	// ExternalURL is the public base URL of this deployment. When set, the
	// keep-alive pinger hits <ExternalURL>/health every few minutes so the
	// hosting platform doesn't idle the process out.
	ExternalURL string `env:"EXTERNAL_URL"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":10000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (if present) and the process environment, then validates
// the result. A missing Telegram token or empty credential pool is fatal:
// the caller must not start the process.
func Load() (*Config, error) {
	_ = godotenv.Load() // best effort; env vars win anyway

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}
	if len(cfg.Credentials()) == 0 {
		return nil, ErrNoCredentials
	}
	return cfg, nil
}

// Credentials returns the ordered Gemini API key pool: the GEMINI_API_KEYS
// list first, then the numbered slots, with empty slots dropped and
// duplicates removed. The order is significant (it defines probe order)
// and fixed after load.
func (c *Config) Credentials() []string {
	raw := make([]string, 0, len(c.GeminiKeys)+6)
	raw = append(raw, c.GeminiKeys...)
	raw = append(raw, c.GeminiKey1, c.GeminiKey2, c.GeminiKey3, c.GeminiKey4, c.GeminiKey5, c.GeminiKey6)

	seen := make(map[string]bool, len(raw))
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
