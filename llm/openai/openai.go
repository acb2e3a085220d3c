// Package openai provides the llm.Provider implementation for OpenAI
// and every OpenAI-compatible chat completion dialect (DeepSeek,
// Perplexity, HuggingFace router, Cloudflare Workers AI, Azure OpenAI,
// custom base URLs).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Compatible-dialect base URLs.
const (
	deepSeekBaseURL    = "https://api.deepseek.com/v1/"
	perplexityBaseURL  = "https://api.perplexity.ai/"
	huggingFaceBaseURL = "https://router.huggingface.co/v1/"
)

// Provider implements llm.Provider against any chat-completions
// endpoint speaking the OpenAI dialect.
type Provider struct {
	providerName string
	modelName    string
	client       openaisdk.Client
	contextLen   int
}

// New creates an OpenAI provider.
func New(apiKey, model string, opts ...option.RequestOption) *Provider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Provider{
		providerName: "openai",
		modelName:    model,
		client:       openaisdk.NewClient(options...),
		contextLen:   128000,
	}
}

// NewWithBaseURL creates a provider for an OpenAI-compatible endpoint,
// reported under the given provider name.
func NewWithBaseURL(providerName, apiKey, model, baseURL string) *Provider {
	p := New(apiKey, model, option.WithBaseURL(baseURL))
	p.providerName = providerName
	return p
}

// NewDeepSeek creates a provider for the DeepSeek API.
func NewDeepSeek(apiKey, model string) *Provider {
	if model == "" {
		model = "deepseek-chat"
	}
	return NewWithBaseURL("deepseek", apiKey, model, deepSeekBaseURL)
}

// NewPerplexity creates a provider for the Perplexity API.
func NewPerplexity(apiKey, model string) *Provider {
	return NewWithBaseURL("perplexity", apiKey, model, perplexityBaseURL)
}

// NewHuggingFace creates a provider for the HuggingFace inference
// router, which exposes hosted models through the OpenAI dialect.
func NewHuggingFace(apiKey, model string) *Provider {
	return NewWithBaseURL("huggingface", apiKey, model, huggingFaceBaseURL)
}

// NewCloudflare creates a provider for Cloudflare Workers AI.
func NewCloudflare(apiKey, accountID, model string) *Provider {
	baseURL := fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/v1/", accountID)
	return NewWithBaseURL("cloudflare", apiKey, model, baseURL)
}

// NewAzure creates a provider for an Azure OpenAI deployment.
func NewAzure(apiKey, endpoint, deployment string) *Provider {
	const apiVersion = "2024-06-01"
	p := &Provider{
		providerName: "azure_openai",
		modelName:    deployment,
		client: openaisdk.NewClient(
			azure.WithEndpoint(endpoint, apiVersion),
			azure.WithAPIKey(apiKey),
		),
		contextLen: 128000,
	}
	return p
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return p.providerName }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.modelName }

// SupportsStreaming reports true.
func (p *Provider) SupportsStreaming() bool { return true }

// SupportsFunctionCalling reports true.
func (p *Provider) SupportsFunctionCalling() bool { return true }

// MaxContextLength returns the assumed context window.
func (p *Provider) MaxContextLength() int { return p.contextLen }

// CostPerToken returns per-token USD costs for known models.
func (p *Provider) CostPerToken() (float64, float64) {
	switch p.modelName {
	case "gpt-4o":
		return 2.50 / 1e6, 10.00 / 1e6
	case "gpt-4o-mini":
		return 0.15 / 1e6, 0.60 / 1e6
	case "gpt-3.5-turbo":
		return 0.50 / 1e6, 1.50 / 1e6
	default:
		return 0, 0
	}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, request llm.Request) (llm.Response, error) {
	if ctx.Err() != nil {
		return llm.Response{}, ctx.Err()
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(request))
	if err != nil {
		return llm.Response{}, p.translateError(err)
	}
	return p.convertResponse(request, resp), nil
}

// Stream implements llm.Provider using server-sent events. Partial
// responses accumulate chunk by chunk; the final chunk carries the
// complete response with usage filled.
func (p *Provider) Stream(ctx context.Context, request llm.Request) (<-chan llm.StreamChunk, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(request))
	out := make(chan llm.StreamChunk, 8)

	go func() {
		defer close(out)

		acc := openaisdk.ChatCompletionAccumulator{}
		var content string

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			var delta string
			if len(chunk.Choices) > 0 {
				delta = chunk.Choices[0].Delta.Content
			}
			content += delta

			partial := llm.Response{
				Content: content,
				Model:   p.modelName,
				Usage:   llm.EstimateUsage(request.TotalChars(), len(content)),
			}
			select {
			case out <- llm.StreamChunk{Delta: delta, Response: partial}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			out <- llm.StreamChunk{Err: p.translateError(err), Done: true}
			return
		}

		final := p.convertResponse(request, &acc.ChatCompletion)
		out <- llm.StreamChunk{Response: final, Done: true}
	}()

	return out, nil
}

func (p *Provider) buildParams(request llm.Request) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.modelName),
		Messages: convertMessages(request.Messages),
	}
	if request.MaxTokens != nil {
		params.MaxTokens = openaisdk.Int(int64(*request.MaxTokens))
	}
	if request.Temperature != nil {
		params.Temperature = openaisdk.Float(*request.Temperature)
	}
	if request.TopP != nil {
		params.TopP = openaisdk.Float(*request.TopP)
	}
	if len(request.Tools) > 0 {
		params.Tools = convertTools(request.Tools)
	}
	return params
}

func convertMessages(messages []llm.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			result[i] = openaisdk.SystemMessage(msg.Content)
		case llm.RoleAssistant:
			result[i] = openaisdk.AssistantMessage(msg.Content)
		default:
			// Tool results and unknown roles flow back as user content.
			result[i] = openaisdk.UserMessage(msg.Content)
		}
	}
	return result
}

func convertTools(tools []llm.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, tool := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openaisdk.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.Schema),
			},
		}
	}
	return result
}

func (p *Provider) convertResponse(request llm.Request, resp *openaisdk.ChatCompletion) llm.Response {
	out := llm.Response{
		Model:        p.modelName,
		ID:           resp.ID,
		FinishReason: llm.FinishOther,
		Usage: llm.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.FinishReason = normalizeFinishReason(string(choice.FinishReason))

		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:         tc.ID,
				Name:       tc.Function.Name,
				Parameters: parseToolArguments(tc.Function.Arguments),
			})
		}
		if len(out.ToolCalls) > 0 && out.FinishReason == llm.FinishOther {
			out.FinishReason = llm.FinishToolCalls
		}
	}

	if out.Usage.IsEmpty() {
		out.Usage = llm.EstimateUsage(request.TotalChars(), len(out.Content))
	}
	return out
}

func normalizeFinishReason(reason string) llm.FinishReason {
	switch reason {
	case "stop":
		return llm.FinishStop
	case "length":
		return llm.FinishLength
	case "content_filter":
		return llm.FinishContentFilter
	case "tool_calls", "function_call":
		return llm.FinishToolCalls
	default:
		return llm.FinishOther
	}
}

func parseToolArguments(arguments string) map[string]interface{} {
	if arguments == "" {
		return nil
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return map[string]interface{}{"_raw": arguments}
	}
	return parsed
}

func (p *Provider) translateError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return types.AuthError(p.providerName, "API key rejected: %v", apiErr.Message)
		case 429:
			return types.RateLimitError(p.providerName, "rate limited: %v", apiErr.Message)
		default:
			return types.LlmProviderError(p.providerName, apiErr.StatusCode, "request failed: %v", apiErr.Message)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.WrapError(types.ErrNetwork, err, "%s request failed", p.providerName)
}
