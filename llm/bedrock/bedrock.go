// Package bedrock provides the llm.Provider implementation for AWS
// Bedrock using the model-agnostic Converse API.
package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Provider implements llm.Provider for Bedrock-hosted models.
// Credentials resolve through the standard AWS chain (environment,
// shared config, instance role).
type Provider struct {
	llm.BaseProvider

	modelID string
	region  string
	client  *bedrockruntime.Client
}

// New creates a Bedrock provider for the given region and model ID
// (for example "anthropic.claude-3-haiku-20240307-v1:0").
func New(ctx context.Context, region, modelID string) (*Provider, error) {
	if modelID == "" {
		return nil, types.ConfigurationError("bedrock configuration requires a model ID")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, types.WrapError(types.ErrConfiguration, err, "failed to load AWS configuration")
	}

	return &Provider{
		modelID: modelID,
		region:  region,
		client:  bedrockruntime.NewFromConfig(cfg),
	}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "bedrock" }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.modelID }

// MaxContextLength returns a conservative Bedrock default.
func (p *Provider) MaxContextLength() int { return 200000 }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, request llm.Request) (llm.Response, error) {
	if ctx.Err() != nil {
		return llm.Response{}, ctx.Err()
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.modelID),
	}

	for _, msg := range request.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			input.System = append(input.System, &brtypes.SystemContentBlockMemberText{Value: msg.Content})
		case llm.RoleAssistant:
			input.Messages = append(input.Messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Content}},
			})
		default:
			input.Messages = append(input.Messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Content}},
			})
		}
	}

	if request.MaxTokens != nil || request.Temperature != nil || request.TopP != nil {
		inference := &brtypes.InferenceConfiguration{}
		if request.MaxTokens != nil {
			inference.MaxTokens = aws.Int32(*request.MaxTokens)
		}
		if request.Temperature != nil {
			inference.Temperature = aws.Float32(float32(*request.Temperature))
		}
		if request.TopP != nil {
			inference.TopP = aws.Float32(float32(*request.TopP))
		}
		input.InferenceConfig = inference
	}

	resp, err := p.client.Converse(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, err
		}
		return llm.Response{}, types.WrapError(types.ErrLlmProvider, err, "bedrock converse failed")
	}

	out := llm.Response{
		Model:        p.modelID,
		FinishReason: normalizeStopReason(resp.StopReason),
	}

	if output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range output.Value.Content {
			if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
				if out.Content != "" {
					out.Content += "\n"
				}
				out.Content += text.Value
			}
		}
	}

	if resp.Usage != nil {
		out.Usage = llm.TokenUsage{
			PromptTokens:     int(aws.ToInt32(resp.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(resp.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(resp.Usage.TotalTokens)),
		}
	}
	if out.Usage.IsEmpty() {
		out.Usage = llm.EstimateUsage(request.TotalChars(), len(out.Content))
	}
	return out, nil
}

func normalizeStopReason(reason brtypes.StopReason) llm.FinishReason {
	switch reason {
	case brtypes.StopReasonEndTurn, brtypes.StopReasonStopSequence:
		return llm.FinishStop
	case brtypes.StopReasonMaxTokens:
		return llm.FinishLength
	case brtypes.StopReasonToolUse:
		return llm.FinishToolCalls
	case brtypes.StopReasonContentFiltered:
		return llm.FinishContentFilter
	default:
		return llm.FinishOther
	}
}
