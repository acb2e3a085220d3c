// Package factory maps a tagged llm.Config onto a concrete provider
// instance. It lives outside the llm package so provider
// implementations can depend on llm without an import cycle.
package factory

import (
	"context"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/llm/anthropic"
	"github.com/InfinitiBit/graphbit-go/llm/bedrock"
	"github.com/InfinitiBit/graphbit-go/llm/google"
	"github.com/InfinitiBit/graphbit-go/llm/ollama"
	"github.com/InfinitiBit/graphbit-go/llm/openai"
	"github.com/InfinitiBit/graphbit-go/types"
)

// NewProvider builds the provider selected by the configuration tag.
// The configuration is validated first, so malformed API keys surface
// here rather than on the first request.
func NewProvider(config llm.Config) (llm.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case llm.ProviderOpenAI:
		if config.BaseURL != "" {
			return openai.NewWithBaseURL("openai", config.APIKey, config.Model, config.BaseURL), nil
		}
		return openai.New(config.APIKey, config.Model), nil
	case llm.ProviderAnthropic:
		return anthropic.New(config.APIKey, config.Model), nil
	case llm.ProviderDeepSeek:
		if config.BaseURL != "" {
			return openai.NewWithBaseURL("deepseek", config.APIKey, config.Model, config.BaseURL), nil
		}
		return openai.NewDeepSeek(config.APIKey, config.Model), nil
	case llm.ProviderHuggingFace:
		if config.BaseURL != "" {
			return openai.NewWithBaseURL("huggingface", config.APIKey, config.Model, config.BaseURL), nil
		}
		return openai.NewHuggingFace(config.APIKey, config.Model), nil
	case llm.ProviderPerplexity:
		if config.BaseURL != "" {
			return openai.NewWithBaseURL("perplexity", config.APIKey, config.Model, config.BaseURL), nil
		}
		return openai.NewPerplexity(config.APIKey, config.Model), nil
	case llm.ProviderCloudflare:
		return openai.NewCloudflare(config.APIKey, config.AccountID, config.Model), nil
	case llm.ProviderGoogle:
		return google.New(config.APIKey, config.Model), nil
	case llm.ProviderAzureOpenAI:
		return openai.NewAzure(config.APIKey, config.BaseURL, config.Deployment), nil
	case llm.ProviderOllama:
		if config.BaseURL != "" {
			return ollama.NewWithBaseURL(config.Model, config.BaseURL), nil
		}
		return ollama.New(config.Model), nil
	case llm.ProviderBedrock:
		return bedrock.New(context.Background(), config.Region, config.Model)
	case llm.ProviderCustom:
		// Custom providers that speak the OpenAI dialect only need a
		// base URL; anything else must be wrapped by the caller via
		// llm.WrapClient.
		if baseURL, ok := config.Params["base_url"].(string); ok && baseURL != "" {
			apiKey, _ := config.Params["api_key"].(string)
			return openai.NewWithBaseURL("custom", apiKey, config.Model, baseURL), nil
		}
		return nil, types.ConfigurationError("custom provider requires a base_url param or a caller-supplied implementation")
	default:
		return nil, types.ConfigurationError("unsupported provider: %s", config.Provider)
	}
}

// NewClient builds a provider and couples it with its configuration.
func NewClient(config llm.Config) (*llm.Client, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return llm.WrapClient(provider, config), nil
}
