package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "gemini", "anthropic", "openai", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string // Default: "claude-haiku"
	BaseURL string
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string
	Model   string // Default: "gemini-flash"
	BaseURL string // Optional. Override for proxies.
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.5-flash"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
	AppName string // X-Title header. Default: "Rutealo"
	SiteURL string // HTTP-Referer header, optional
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
		Retry:      DefaultRetryConfig(),
	}
}

// ConfigFromEnv builds a Config from RUTEALO_* environment variables,
// falling back to defaults for unset values. The bare GEMINI_API_KEY is
// honoured when RUTEALO_GEMINI_API_KEY is unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setStr(&cfg.Provider, "RUTEALO_LLM_PROVIDER")

	setStr(&cfg.Anthropic.APIKey, "RUTEALO_ANTHROPIC_API_KEY")
	setStr(&cfg.Anthropic.Model, "RUTEALO_ANTHROPIC_MODEL")
	setStr(&cfg.Anthropic.BaseURL, "RUTEALO_ANTHROPIC_BASE_URL")

	setStr(&cfg.OpenAI.APIKey, "RUTEALO_OPENAI_API_KEY")
	setStr(&cfg.OpenAI.Model, "RUTEALO_OPENAI_MODEL")
	setStr(&cfg.OpenAI.BaseURL, "RUTEALO_OPENAI_BASE_URL")

	setStr(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setStr(&cfg.Gemini.APIKey, "RUTEALO_GEMINI_API_KEY")
	setStr(&cfg.Gemini.Model, "RUTEALO_GEMINI_MODEL")
	setStr(&cfg.Gemini.BaseURL, "RUTEALO_GEMINI_BASE_URL")

	setStr(&cfg.OpenRouter.APIKey, "RUTEALO_OPENROUTER_API_KEY")
	setStr(&cfg.OpenRouter.Model, "RUTEALO_OPENROUTER_MODEL")
	setStr(&cfg.OpenRouter.BaseURL, "RUTEALO_OPENROUTER_BASE_URL")
	setStr(&cfg.OpenRouter.AppName, "RUTEALO_OPENROUTER_APP_NAME")
	setStr(&cfg.OpenRouter.SiteURL, "RUTEALO_OPENROUTER_SITE_URL")

	if v, err := strconv.Atoi(os.Getenv("RUTEALO_LLM_MAX_ATTEMPTS")); err == nil && v > 0 {
		cfg.Retry.MaxAttempts = v
	}
	if d, err := time.ParseDuration(os.Getenv("RUTEALO_LLM_RETRY_DELAY")); err == nil {
		cfg.Retry.InitialWait = d
	}
	if m, err := strconv.ParseFloat(os.Getenv("RUTEALO_LLM_RETRY_MULTIPLIER"), 64); err == nil && m >= 1 {
		cfg.Retry.Multiplier = m
	}
	if d, err := time.ParseDuration(os.Getenv("RUTEALO_LLM_ATTEMPT_TIMEOUT")); err == nil {
		cfg.Retry.AttemptTimeout = d
	}

	return cfg
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("RUTEALO_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("RUTEALO_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY or RUTEALO_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("RUTEALO_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
