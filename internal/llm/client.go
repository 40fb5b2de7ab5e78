package llm

import (
	"context"
	"time"
)

// Supported providers.
const (
	ProviderMistral   = "mistral"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Client sends a single-turn completion request to a language model.
type Client interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Config holds provider and request settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type providerDefaults struct {
	baseURL string
	model   string
}

var defaults = map[string]providerDefaults{
	ProviderMistral:   {baseURL: "https://api.mistral.ai/v1", model: "mistral-small-latest"},
	ProviderOpenAI:    {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	ProviderAnthropic: {baseURL: "https://api.anthropic.com", model: "claude-3-5-haiku-latest"},
	ProviderGemini:    {model: "gemini-2.5-flash-lite"},
}

// withDefaults fills unset request settings for provider.
func (c Config) withDefaults(provider string) Config {
	d := defaults[provider]
	c.Provider = provider
	if c.Model == "" {
		c.Model = d.model
	}
	if c.BaseURL == "" {
		c.BaseURL = d.baseURL
	}
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 600
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
