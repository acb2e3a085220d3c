package llm

import (
	"strings"

	"github.com/InfinitiBit/graphbit-go/types"
)

// ProviderKind tags the supported provider configurations.
type ProviderKind string

// Supported provider kinds.
const (
	ProviderOpenAI      ProviderKind = "openai"
	ProviderAnthropic   ProviderKind = "anthropic"
	ProviderDeepSeek    ProviderKind = "deepseek"
	ProviderHuggingFace ProviderKind = "huggingface"
	ProviderOllama      ProviderKind = "ollama"
	ProviderPerplexity  ProviderKind = "perplexity"
	ProviderCloudflare  ProviderKind = "cloudflare"
	ProviderGoogle      ProviderKind = "google"
	ProviderAzureOpenAI ProviderKind = "azure_openai"
	ProviderBedrock     ProviderKind = "bedrock"
	ProviderCustom      ProviderKind = "custom"
)

// Config is a tagged variant over the supported provider kinds. The
// Provider field selects the kind; the remaining fields carry the
// deployment-specific data each kind needs.
type Config struct {
	// Provider selects the backend.
	Provider ProviderKind `json:"provider"`
	// APIKey authenticates with the provider (unused for Ollama).
	APIKey string `json:"api_key,omitempty"`
	// Model is the model name or deployment-specific identifier.
	Model string `json:"model"`
	// BaseURL optionally overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty"`
	// Organization is the optional OpenAI organization ID.
	Organization string `json:"organization,omitempty"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `json:"deployment,omitempty"`
	// Region is the AWS region for Bedrock.
	Region string `json:"region,omitempty"`
	// AccountID is the Cloudflare account identifier.
	AccountID string `json:"account_id,omitempty"`
	// Params carries free-form settings for custom providers.
	Params map[string]interface{} `json:"params,omitempty"`
}

// OpenAI creates an OpenAI configuration.
func OpenAI(apiKey, model string) Config {
	return Config{Provider: ProviderOpenAI, APIKey: apiKey, Model: model}
}

// Anthropic creates an Anthropic configuration.
func Anthropic(apiKey, model string) Config {
	return Config{Provider: ProviderAnthropic, APIKey: apiKey, Model: model}
}

// DeepSeek creates a DeepSeek configuration.
func DeepSeek(apiKey, model string) Config {
	return Config{Provider: ProviderDeepSeek, APIKey: apiKey, Model: model}
}

// HuggingFace creates a HuggingFace inference configuration.
func HuggingFace(apiKey, model string) Config {
	return Config{Provider: ProviderHuggingFace, APIKey: apiKey, Model: model}
}

// Ollama creates a local Ollama configuration. No API key required.
func Ollama(model string) Config {
	return Config{Provider: ProviderOllama, Model: model}
}

// OllamaWithBaseURL creates an Ollama configuration against a custom
// server URL.
func OllamaWithBaseURL(model, baseURL string) Config {
	return Config{Provider: ProviderOllama, Model: model, BaseURL: baseURL}
}

// Perplexity creates a Perplexity configuration.
func Perplexity(apiKey, model string) Config {
	return Config{Provider: ProviderPerplexity, APIKey: apiKey, Model: model}
}

// Cloudflare creates a Cloudflare Workers AI configuration.
func Cloudflare(apiKey, accountID, model string) Config {
	return Config{Provider: ProviderCloudflare, APIKey: apiKey, AccountID: accountID, Model: model}
}

// Google creates a Google Gemini configuration.
func Google(apiKey, model string) Config {
	return Config{Provider: ProviderGoogle, APIKey: apiKey, Model: model}
}

// AzureOpenAI creates an Azure OpenAI configuration. The endpoint is
// the resource base URL, deployment the deployed model name.
func AzureOpenAI(apiKey, endpoint, deployment string) Config {
	return Config{Provider: ProviderAzureOpenAI, APIKey: apiKey, BaseURL: endpoint, Deployment: deployment, Model: deployment}
}

// Bedrock creates an AWS Bedrock configuration. Credentials resolve
// through the standard AWS chain.
func Bedrock(region, model string) Config {
	return Config{Provider: ProviderBedrock, Region: region, Model: model}
}

// Custom creates a custom provider configuration.
func Custom(providerType string, params map[string]interface{}) Config {
	model := ""
	if m, ok := params["model"].(string); ok {
		model = m
	}
	return Config{Provider: ProviderCustom, Model: model, Params: params}
}

// ProviderName returns the provider tag as a string.
func (c Config) ProviderName() string { return string(c.Provider) }

// ModelName returns the configured model name.
func (c Config) ModelName() string { return c.Model }

// apiKeyPrefixes maps providers to the canonical prefix of their API
// keys. Providers absent from the map accept any non-empty key.
var apiKeyPrefixes = map[ProviderKind]string{
	ProviderOpenAI:      "sk-",
	ProviderAnthropic:   "sk-ant-",
	ProviderDeepSeek:    "sk-",
	ProviderHuggingFace: "hf_",
	ProviderPerplexity:  "pplx-",
	ProviderGoogle:      "AIza",
}

// Validate checks the configuration for completeness and, where the
// provider defines one, the canonical API key format.
func (c Config) Validate() error {
	if c.Model == "" {
		return types.ConfigurationError("%s configuration requires a model name", c.Provider)
	}

	switch c.Provider {
	case ProviderOllama, ProviderBedrock:
		// No API key: Ollama is local, Bedrock uses the AWS chain.
	case ProviderCustom:
		// Custom providers validate their own params.
	default:
		if c.APIKey == "" {
			return types.ConfigurationError("%s configuration requires an API key", c.Provider)
		}
		if prefix, ok := apiKeyPrefixes[c.Provider]; ok && !strings.HasPrefix(c.APIKey, prefix) {
			return types.ConfigurationError("%s API key must start with %q", c.Provider, prefix)
		}
	}

	switch c.Provider {
	case ProviderAzureOpenAI:
		if c.BaseURL == "" {
			return types.ConfigurationError("azure_openai configuration requires an endpoint URL")
		}
	case ProviderCloudflare:
		if c.AccountID == "" {
			return types.ConfigurationError("cloudflare configuration requires an account_id")
		}
	case ProviderBedrock:
		if c.Region == "" {
			return types.ConfigurationError("bedrock configuration requires a region")
		}
	}

	return nil
}
