// Package ollama provides the llm.Provider implementation for a local
// Ollama server using its native chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// DefaultBaseURL is the standard local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

// Provider implements llm.Provider against the Ollama /api/chat
// endpoint. No authentication is required; the server runs locally.
type Provider struct {
	llm.BaseProvider

	modelName string
	baseURL   string
	client    *http.Client
}

// New creates an Ollama provider against the default local server.
func New(model string) *Provider {
	return NewWithBaseURL(model, DefaultBaseURL)
}

// NewWithBaseURL creates an Ollama provider against a custom server.
func NewWithBaseURL(model, baseURL string) *Provider {
	if model == "" {
		model = "llama3.2"
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		modelName: model,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "ollama" }

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.modelName }

// MaxContextLength returns a conservative local-model default.
func (p *Provider) MaxContextLength() int { return 8192 }

// chatRequest is the Ollama /api/chat request body.
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the non-streaming Ollama /api/chat response body.
type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, request llm.Request) (llm.Response, error) {
	if ctx.Err() != nil {
		return llm.Response{}, ctx.Err()
	}

	body := chatRequest{
		Model:    p.modelName,
		Messages: make([]chatMessage, 0, len(request.Messages)),
		Stream:   false,
	}
	for _, msg := range request.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	options := make(map[string]interface{}, 3)
	if request.MaxTokens != nil {
		options["num_predict"] = *request.MaxTokens
	}
	if request.Temperature != nil {
		options["temperature"] = *request.Temperature
	}
	if request.TopP != nil {
		options["top_p"] = *request.TopP
	}
	if len(options) > 0 {
		body.Options = options
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, types.WrapError(types.ErrConfiguration, err, "failed to encode ollama request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return llm.Response{}, types.WrapError(types.ErrConfiguration, err, "failed to build ollama request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, err
		}
		return llm.Response{}, types.WrapError(types.ErrNetwork, err, "ollama request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, types.WrapError(types.ErrNetwork, err, "failed to read ollama response")
	}
	if resp.StatusCode != http.StatusOK {
		return llm.Response{}, types.LlmProviderError("ollama", resp.StatusCode, "ollama returned %s: %s", resp.Status, truncate(string(payload), 200))
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return llm.Response{}, types.WrapError(types.ErrLlmProvider, err, "failed to decode ollama response")
	}

	out := llm.Response{
		Content:      decoded.Message.Content,
		Model:        decoded.Model,
		FinishReason: normalizeDoneReason(decoded.DoneReason),
		Usage: llm.TokenUsage{
			PromptTokens:     decoded.PromptEvalCount,
			CompletionTokens: decoded.EvalCount,
			TotalTokens:      decoded.PromptEvalCount + decoded.EvalCount,
		},
	}
	if out.Model == "" {
		out.Model = p.modelName
	}
	if out.Usage.IsEmpty() {
		out.Usage = llm.EstimateUsage(request.TotalChars(), len(out.Content))
	}
	return out, nil
}

func normalizeDoneReason(reason string) llm.FinishReason {
	switch reason {
	case "stop", "":
		return llm.FinishStop
	case "length":
		return llm.FinishLength
	default:
		return llm.FinishOther
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
