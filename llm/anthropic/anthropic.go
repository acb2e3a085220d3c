// Package anthropic provides the llm.Provider implementation for
// Anthropic's Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// defaultMaxTokens applies when the request does not cap completion
// length; the Messages API requires an explicit value.
const defaultMaxTokens = 4096

// Provider implements llm.Provider for Claude models.
//
// The Messages API takes the system prompt as a separate parameter, so
// system messages are extracted from the conversation before the call.
type Provider struct {
	llm.BaseProvider

	modelName string
	client    anthropicsdk.Client
}

// New creates an Anthropic provider.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &Provider{
		modelName: model,
		client:    anthropicsdk.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "anthropic" }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.modelName }

// SupportsFunctionCalling reports true.
func (p *Provider) SupportsFunctionCalling() bool { return true }

// MaxContextLength returns the Claude context window.
func (p *Provider) MaxContextLength() int { return 200000 }

// CostPerToken returns per-token USD costs for known models.
func (p *Provider) CostPerToken() (float64, float64) {
	switch p.modelName {
	case "claude-3-5-sonnet-20241022":
		return 3.00 / 1e6, 15.00 / 1e6
	case "claude-3-opus-20240229":
		return 15.00 / 1e6, 75.00 / 1e6
	case "claude-3-haiku-20240307":
		return 0.25 / 1e6, 1.25 / 1e6
	default:
		return 0, 0
	}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, request llm.Request) (llm.Response, error) {
	if ctx.Err() != nil {
		return llm.Response{}, ctx.Err()
	}

	systemPrompt, conversation := extractSystemPrompt(request.Messages)

	maxTokens := int64(defaultMaxTokens)
	if request.MaxTokens != nil {
		maxTokens = int64(*request.MaxTokens)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(p.modelName),
		Messages:  convertMessages(conversation),
		MaxTokens: maxTokens,
	}
	if systemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}
	if request.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*request.Temperature)
	}
	if request.TopP != nil {
		params.TopP = anthropicsdk.Float(*request.TopP)
	}
	if len(request.Tools) > 0 {
		params.Tools = convertTools(request.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, p.translateError(err)
	}
	return p.convertResponse(request, resp), nil
}

// extractSystemPrompt separates system messages from the conversation,
// concatenating multiples with blank lines.
func extractSystemPrompt(messages []llm.Message) (string, []llm.Message) {
	var systemPrompt string
	conversation := make([]llm.Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return systemPrompt, conversation
}

func convertMessages(messages []llm.Message) []anthropicsdk.MessageParam {
	result := make([]anthropicsdk.MessageParam, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleAssistant:
			result[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content))
		default:
			result[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content))
		}
	}
	return result
}

func convertTools(tools []llm.ToolDefinition) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, tool := range tools {
		var properties interface{}
		var required []string
		if tool.Schema != nil {
			properties = tool.Schema["properties"]
			if req, ok := tool.Schema["required"].([]interface{}); ok {
				for _, v := range req {
					if s, ok := v.(string); ok {
						required = append(required, s)
					}
				}
			} else if req, ok := tool.Schema["required"].([]string); ok {
				required = req
			}
		}

		result[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        tool.Name,
				Description: anthropicsdk.String(tool.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		}
	}
	return result
}

func (p *Provider) convertResponse(request llm.Request, resp *anthropicsdk.Message) llm.Response {
	out := llm.Response{
		Model: p.modelName,
		ID:    resp.ID,
		Usage: llm.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		FinishReason: normalizeStopReason(string(resp.StopReason)),
	}

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:         b.ID,
				Name:       b.Name,
				Parameters: toolInputMap(b.Input),
			})
		}
	}

	if out.Usage.IsEmpty() {
		out.Usage = llm.EstimateUsage(request.TotalChars(), len(out.Content))
	}
	return out
}

func normalizeStopReason(reason string) llm.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return llm.FinishStop
	case "max_tokens":
		return llm.FinishLength
	case "tool_use":
		return llm.FinishToolCalls
	case "refusal":
		return llm.FinishContentFilter
	default:
		return llm.FinishOther
	}
}

func toolInputMap(input interface{}) map[string]interface{} {
	switch v := input.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return v
	case json.RawMessage:
		var parsed map[string]interface{}
		if err := json.Unmarshal(v, &parsed); err == nil {
			return parsed
		}
		return map[string]interface{}{"_raw": string(v)}
	default:
		return map[string]interface{}{"_raw": input}
	}
}

func (p *Provider) translateError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return types.AuthError("anthropic", "API key rejected")
		case 429:
			return types.RateLimitError("anthropic", "rate limited")
		default:
			return types.LlmProviderError("anthropic", apiErr.StatusCode, "request failed: %v", apiErr.Error())
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.WrapError(types.ErrNetwork, err, "anthropic request failed")
}
