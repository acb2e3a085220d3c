package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageContentType discriminates AgentMessage content variants.
type MessageContentType string

// Message content variants.
const (
	// ContentText is a plain text message.
	ContentText MessageContentType = "text"
	// ContentData is a structured data message.
	ContentData MessageContentType = "data"
	// ContentToolCall is a tool invocation request.
	ContentToolCall MessageContentType = "tool_call"
	// ContentToolResponse is a tool invocation result.
	ContentToolResponse MessageContentType = "tool_response"
	// ContentError is an error report.
	ContentError MessageContentType = "error"
)

// MessageContent is a tagged variant over the payload kinds an agent
// message can carry.
type MessageContent struct {
	Type MessageContentType `json:"type"`

	// Text for ContentText.
	Text string `json:"text,omitempty"`
	// Data for ContentData.
	Data interface{} `json:"data,omitempty"`
	// ToolName for tool call/response variants.
	ToolName string `json:"tool_name,omitempty"`
	// Parameters for ContentToolCall.
	Parameters interface{} `json:"parameters,omitempty"`
	// Result and ToolSuccess for ContentToolResponse.
	Result      interface{} `json:"result,omitempty"`
	ToolSuccess bool        `json:"tool_success,omitempty"`
	// ErrorCode and ErrorMessage for ContentError.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TextContent creates a plain text payload.
func TextContent(text string) MessageContent {
	return MessageContent{Type: ContentText, Text: text}
}

// DataContent creates a structured data payload.
func DataContent(data interface{}) MessageContent {
	return MessageContent{Type: ContentData, Data: data}
}

// ToolCallContent creates a tool invocation payload.
func ToolCallContent(toolName string, parameters interface{}) MessageContent {
	return MessageContent{Type: ContentToolCall, ToolName: toolName, Parameters: parameters}
}

// ToolResponseContent creates a tool result payload.
func ToolResponseContent(toolName string, result interface{}, success bool) MessageContent {
	return MessageContent{Type: ContentToolResponse, ToolName: toolName, Result: result, ToolSuccess: success}
}

// ErrorContent creates an error payload.
func ErrorContent(code, message string) MessageContent {
	return MessageContent{Type: ContentError, ErrorCode: code, ErrorMessage: message}
}

// AgentMessage is the envelope agents exchange with the engine. A nil
// recipient means broadcast.
type AgentMessage struct {
	ID        uuid.UUID              `json:"id"`
	Sender    AgentID                `json:"sender"`
	Recipient *AgentID               `json:"recipient,omitempty"`
	Content   MessageContent         `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewAgentMessage creates a message from sender to recipient.
func NewAgentMessage(sender AgentID, recipient *AgentID, content MessageContent) AgentMessage {
	return AgentMessage{
		ID:        uuid.New(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Metadata:  make(map[string]interface{}, 4),
		Timestamp: time.Now().UTC(),
	}
}

// WithMetadata attaches a metadata entry.
func (m AgentMessage) WithMetadata(key string, value interface{}) AgentMessage {
	m.Metadata[key] = value
	return m
}
