package llm_test

import (
	"encoding/json"
	"testing"

	"github.com/InfinitiBit/graphbit-go/llm"
)

func TestConfigConstructors(t *testing.T) {
	cases := []struct {
		name     string
		config   llm.Config
		provider llm.ProviderKind
		model    string
	}{
		{"openai", llm.OpenAI("sk-abc", "gpt-4o"), llm.ProviderOpenAI, "gpt-4o"},
		{"anthropic", llm.Anthropic("sk-ant-abc", "claude-3-haiku-20240307"), llm.ProviderAnthropic, "claude-3-haiku-20240307"},
		{"ollama", llm.Ollama("llama3.2"), llm.ProviderOllama, "llama3.2"},
		{"bedrock", llm.Bedrock("us-east-1", "anthropic.claude-3-haiku-20240307-v1:0"), llm.ProviderBedrock, "anthropic.claude-3-haiku-20240307-v1:0"},
		{"cloudflare", llm.Cloudflare("cf-key", "acct-1", "@cf/meta/llama-3-8b"), llm.ProviderCloudflare, "@cf/meta/llama-3-8b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.config.Provider != tc.provider {
				t.Errorf("provider = %s, want %s", tc.config.Provider, tc.provider)
			}
			if tc.config.ModelName() != tc.model {
				t.Errorf("model = %s, want %s", tc.config.ModelName(), tc.model)
			}
		})
	}
}

func TestConfigJSONRoundTrip(t *testing.T) {
	original := llm.AzureOpenAI("azure-key", "https://example.openai.azure.com", "gpt-4o-deploy")

	encoded, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	var decoded llm.Config
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Provider != llm.ProviderAzureOpenAI {
		t.Errorf("provider tag lost: %s", decoded.Provider)
	}
	if decoded.BaseURL != original.BaseURL || decoded.Deployment != original.Deployment {
		t.Errorf("required fields lost: %+v", decoded)
	}
}

func TestConfigValidateAPIKeyFormats(t *testing.T) {
	cases := []struct {
		name   string
		config llm.Config
		ok     bool
	}{
		{"openai valid", llm.OpenAI("sk-abc123", "gpt-4o"), true},
		{"openai bad prefix", llm.OpenAI("key-abc", "gpt-4o"), false},
		{"openai missing key", llm.OpenAI("", "gpt-4o"), false},
		{"anthropic valid", llm.Anthropic("sk-ant-abc", "claude-3-haiku-20240307"), true},
		{"anthropic wrong prefix", llm.Anthropic("sk-abc", "claude-3-haiku-20240307"), false},
		{"huggingface valid", llm.HuggingFace("hf_abc", "mistral"), true},
		{"huggingface wrong prefix", llm.HuggingFace("token", "mistral"), false},
		{"perplexity valid", llm.Perplexity("pplx-abc", "sonar"), true},
		{"google valid", llm.Google("AIzaSyExample", "gemini-1.5-flash"), true},
		{"google wrong prefix", llm.Google("key-123", "gemini-1.5-flash"), false},
		{"ollama needs no key", llm.Ollama("llama3.2"), true},
		{"bedrock needs region", llm.Config{Provider: llm.ProviderBedrock, Model: "m"}, false},
		{"missing model", llm.OpenAI("sk-abc", ""), false},
		{"azure needs endpoint", llm.Config{Provider: llm.ProviderAzureOpenAI, APIKey: "k", Model: "d"}, false},
		{"cloudflare needs account", llm.Config{Provider: llm.ProviderCloudflare, APIKey: "k", Model: "m"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
