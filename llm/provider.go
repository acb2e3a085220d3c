package llm

import (
	"context"

	"github.com/InfinitiBit/graphbit-go/types"
)

// StreamChunk is one partial response delivered during streaming. The
// final chunk has Done set and carries the accumulated usage.
type StreamChunk struct {
	// Delta is the text appended by this chunk.
	Delta string `json:"delta"`
	// Response is the partial normalized response accumulated so far.
	Response Response `json:"response"`
	// Done marks the final chunk.
	Done bool `json:"done"`
	// Err reports a mid-stream failure; the channel closes after it.
	Err error `json:"-"`
}

// Provider is the capability set every LLM backend implements.
//
// Complete is required. Stream is optional; backends that cannot stream
// return ErrStreamingNotSupported (embed BaseProvider for the
// defaults). The informational methods let callers size requests and
// attribute costs.
type Provider interface {
	// Name returns the provider tag ("openai", "anthropic", ...).
	Name() string
	// Model returns the configured model name.
	Model() string
	// Complete sends a request and returns the normalized response.
	Complete(ctx context.Context, request Request) (Response, error)
	// Stream sends a request and emits partial responses on the
	// returned channel until Done.
	Stream(ctx context.Context, request Request) (<-chan StreamChunk, error)
	// SupportsStreaming reports whether Stream is implemented.
	SupportsStreaming() bool
	// SupportsFunctionCalling reports tool-call support.
	SupportsFunctionCalling() bool
	// MaxContextLength returns the model's context window in tokens
	// (0 when unknown).
	MaxContextLength() int
	// CostPerToken returns (input, output) USD cost per token
	// (0, 0 when unknown).
	CostPerToken() (float64, float64)
}

// ErrStreamingNotSupported is returned by providers without streaming
// support.
var ErrStreamingNotSupported = types.ConfigurationError("streaming not supported by this provider")

// BaseProvider supplies the default optional-capability answers.
// Concrete providers embed it and override what they support.
type BaseProvider struct{}

// Stream returns ErrStreamingNotSupported.
func (BaseProvider) Stream(context.Context, Request) (<-chan StreamChunk, error) {
	return nil, ErrStreamingNotSupported
}

// SupportsStreaming reports false.
func (BaseProvider) SupportsStreaming() bool { return false }

// SupportsFunctionCalling reports false.
func (BaseProvider) SupportsFunctionCalling() bool { return false }

// MaxContextLength reports unknown.
func (BaseProvider) MaxContextLength() int { return 0 }

// CostPerToken reports unknown.
func (BaseProvider) CostPerToken() (float64, float64) { return 0, 0 }

// Client couples a provider instance with the configuration that built
// it. It is the handle agents and the memory subsystem hold.
type Client struct {
	provider Provider
	config   Config
}

// WrapClient couples an already-built provider with its configuration.
// The factory package constructs clients directly from a Config.
func WrapClient(provider Provider, config Config) *Client {
	return &Client{provider: provider, config: config}
}

// Config returns the client's provider configuration.
func (c *Client) Config() Config { return c.config }

// Provider returns the underlying provider.
func (c *Client) Provider() Provider { return c.provider }

// Complete forwards to the provider.
func (c *Client) Complete(ctx context.Context, request Request) (Response, error) {
	return c.provider.Complete(ctx, request)
}

// Stream forwards to the provider.
func (c *Client) Stream(ctx context.Context, request Request) (<-chan StreamChunk, error) {
	return c.provider.Stream(ctx, request)
}
