package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/digital-twin/internal/common"
)

// NewClient creates a client for the configured provider. An empty provider
// selects Mistral.
func NewClient(cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch provider := strings.ToLower(cfg.Provider); provider {
	case "", ProviderMistral, ProviderOpenAI:
		if provider == "" {
			provider = ProviderMistral
		}
		var c *chatCompletionsClient
		if c, err = newChatCompletionsClient(cfg.withDefaults(provider)); err == nil {
			client = c
		}
	case ProviderAnthropic:
		var c *anthropicClient
		if c, err = newAnthropicClient(cfg.withDefaults(provider)); err == nil {
			client = c
		}
	case ProviderGemini:
		var c *geminiClient
		if c, err = newGeminiClient(cfg.withDefaults(provider)); err == nil {
			client = c
		}
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderMistral, ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}
