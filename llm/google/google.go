// Package google provides the llm.Provider implementation for Google's
// Gemini API.
package google

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Provider implements llm.Provider for Gemini models.
//
// Gemini handles system instructions via a dedicated model field and
// safety filtering via per-candidate finish reasons; both are
// normalized here.
type Provider struct {
	llm.BaseProvider

	apiKey    string
	modelName string
}

// New creates a Google Gemini provider.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Provider{apiKey: apiKey, modelName: model}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "google" }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.modelName }

// SupportsFunctionCalling reports true.
func (p *Provider) SupportsFunctionCalling() bool { return true }

// MaxContextLength returns the Gemini context window.
func (p *Provider) MaxContextLength() int { return 1000000 }

// CostPerToken returns per-token USD costs for known models.
func (p *Provider) CostPerToken() (float64, float64) {
	switch p.modelName {
	case "gemini-1.5-pro":
		return 1.25 / 1e6, 5.00 / 1e6
	case "gemini-1.5-flash":
		return 0.075 / 1e6, 0.30 / 1e6
	default:
		return 0, 0
	}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, request llm.Request) (llm.Response, error) {
	if ctx.Err() != nil {
		return llm.Response{}, ctx.Err()
	}
	if p.apiKey == "" {
		return llm.Response{}, types.ConfigurationError("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return llm.Response{}, types.WrapError(types.ErrNetwork, err, "failed to create google client")
	}
	defer func() { _ = client.Close() }()

	genModel := client.GenerativeModel(p.modelName)

	systemPrompt, conversation := splitSystem(request.Messages)
	if systemPrompt != "" {
		genModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if request.MaxTokens != nil {
		genModel.SetMaxOutputTokens(*request.MaxTokens)
	}
	if request.Temperature != nil {
		genModel.SetTemperature(float32(*request.Temperature))
	}
	if request.TopP != nil {
		genModel.SetTopP(float32(*request.TopP))
	}
	if len(request.Tools) > 0 {
		genModel.Tools = convertTools(request.Tools)
	}

	parts := make([]genai.Part, 0, len(conversation))
	for _, msg := range conversation {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, err
		}
		return llm.Response{}, types.WrapError(types.ErrLlmProvider, err, "google API error")
	}

	return p.convertResponse(request, resp), nil
}

func splitSystem(messages []llm.Message) (string, []llm.Message) {
	var system string
	conversation := make([]llm.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		conversation = append(conversation, msg)
	}
	return system, conversation
}

func convertTools(tools []llm.ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchema maps a one-level JSON schema onto genai.Schema. Nested
// object properties keep only type and description.
func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]interface{}); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	return result
}

func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func (p *Provider) convertResponse(request llm.Request, resp *genai.GenerateContentResponse) llm.Response {
	out := llm.Response{Model: p.modelName, FinishReason: llm.FinishOther}

	if resp.UsageMetadata != nil {
		out.Usage = llm.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		out.FinishReason = normalizeFinishReason(candidate.FinishReason)

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					if out.Content != "" {
						out.Content += "\n"
					}
					out.Content += string(v)
				case genai.FunctionCall:
					out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
						Name:       v.Name,
						Parameters: v.Args,
					})
				}
			}
		}
		if len(out.ToolCalls) > 0 {
			out.FinishReason = llm.FinishToolCalls
		}
	}

	if out.Usage.IsEmpty() {
		out.Usage = llm.EstimateUsage(request.TotalChars(), len(out.Content))
	}
	return out
}

func normalizeFinishReason(reason genai.FinishReason) llm.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return llm.FinishStop
	case genai.FinishReasonMaxTokens:
		return llm.FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return llm.FinishContentFilter
	default:
		return llm.FinishOther
	}
}
