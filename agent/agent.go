package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/llm/factory"
	"github.com/InfinitiBit/graphbit-go/types"
	"github.com/InfinitiBit/graphbit-go/validation"
)

// Agent is a configured LLM caller. It binds a provider client to a
// system prompt and validates structured outputs against schemas.
type Agent struct {
	config    Config
	client    *llm.Client
	validator *validation.TypeValidator
}

// New creates an agent from its configuration, constructing the
// provider via the factory. Invalid provider configuration (including
// malformed API keys) is rejected here.
func New(config Config) (*Agent, error) {
	client, err := factory.NewClient(config.LlmConfig)
	if err != nil {
		return nil, err
	}
	return NewWithClient(config, client), nil
}

// NewWithClient creates an agent around an existing client. Used by
// tests and callers that construct providers themselves.
func NewWithClient(config Config, client *llm.Client) *Agent {
	return &Agent{
		config:    config,
		client:    client,
		validator: validation.NewTypeValidator(),
	}
}

// ID returns the agent's identity.
func (a *Agent) ID() types.AgentID { return a.config.ID }

// Config returns the agent configuration.
func (a *Agent) Config() Config { return a.config }

// Client returns the bound LLM client.
func (a *Agent) Client() *llm.Client { return a.client }

// buildRequest assembles the provider request for a message: optional
// system prompt, the message content as the user turn, and the agent's
// sampling configuration.
func (a *Agent) buildRequest(message types.AgentMessage, tools []llm.ToolDefinition) llm.Request {
	messages := make([]llm.Message, 0, 2)
	if a.config.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage(a.config.SystemPrompt))
	}
	messages = append(messages, llm.UserMessage(renderContent(message.Content)))

	request := llm.RequestWithMessages(messages...)
	if a.config.MaxTokens != nil {
		request = request.WithMaxTokens(*a.config.MaxTokens)
	}
	if a.config.Temperature != nil {
		request = request.WithTemperature(*a.config.Temperature)
	}
	if len(tools) > 0 {
		request = request.WithTools(tools...)
	}
	return request
}

// renderContent flattens a message content variant into prompt text.
func renderContent(content types.MessageContent) string {
	switch content.Type {
	case types.ContentText:
		return content.Text
	case types.ContentData:
		encoded, err := json.Marshal(content.Data)
		if err != nil {
			return fmt.Sprintf("%v", content.Data)
		}
		return string(encoded)
	case types.ContentToolCall:
		return fmt.Sprintf("Tool call: %s with parameters: %v", content.ToolName, content.Parameters)
	case types.ContentToolResponse:
		return fmt.Sprintf("Tool %s response (success: %t): %v", content.ToolName, content.ToolSuccess, content.Result)
	case types.ContentError:
		return fmt.Sprintf("Error %s: %s", content.ErrorCode, content.ErrorMessage)
	default:
		return content.Text
	}
}

// ProcessMessage sends a message through the provider and returns the
// reply addressed back to the sender. Token usage is recorded on the
// workflow context under "last_token_usage".
func (a *Agent) ProcessMessage(ctx context.Context, message types.AgentMessage, wfCtx *types.WorkflowContext) (types.AgentMessage, error) {
	request := a.buildRequest(message, nil)

	response, err := a.client.Complete(ctx, request)
	if err != nil {
		return types.AgentMessage{}, err
	}

	if wfCtx != nil {
		wfCtx.SetMetadata("last_token_usage", response.Usage)
	}

	sender := message.Sender
	return types.NewAgentMessage(a.config.ID, &sender, types.TextContent(response.Content)), nil
}

// Execute sends a message and returns the parsed output value: JSON
// responses decode to their value, anything else returns as a string.
// The full provider response is returned alongside for metadata.
func (a *Agent) Execute(ctx context.Context, message types.AgentMessage, tools []llm.ToolDefinition) (interface{}, llm.Response, error) {
	request := a.buildRequest(message, tools)

	response, err := a.client.Complete(ctx, request)
	if err != nil {
		return nil, llm.Response{}, err
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(response.Content), &parsed); err != nil {
		parsed = response.Content
	}
	return parsed, response, nil
}

// ValidateOutput validates raw output against a JSON schema.
func (a *Agent) ValidateOutput(output string, schema map[string]interface{}) validation.Result {
	return a.validator.ValidateAgainstSchema(output, schema)
}
