package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/symbiosis/internal/config"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewClient builds the client for cfg.Provider. apiKey overrides cfg.APIKey
// when set, so keys collected at runtime take effect without a config reload.
func NewClient(ctx context.Context, cfg config.LLMConfig, apiKey string) (LLMClient, error) {
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openrouter":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openRouterBaseURL
		}
		headers := map[string]string{}
		if cfg.Referer != "" {
			headers["HTTP-Referer"] = cfg.Referer
		}
		if cfg.Title != "" {
			headers["X-Title"] = cfg.Title
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, headers), nil

	case "openai":
		return NewOpenAIClient(apiKey, cfg.Model, cfg.BaseURL, nil), nil

	case "ollama":
		// Ollama exposes an OpenAI-compatible API under /v1.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, nil), nil

	case "claude":
		return NewClaudeClient(apiKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, apiKey, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
