// Package agent provides the LLM-bound agent: a configured caller tied
// to a provider, system prompt, and output-validation policy.
package agent

import (
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Config describes an agent: identity, behavior, and the LLM provider
// configuration it is bound to.
type Config struct {
	// ID identifies the agent; workflow nodes reference it.
	ID types.AgentID `json:"id"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Description explains the agent's purpose.
	Description string `json:"description"`
	// SystemPrompt is prepended to every request when non-empty.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// LlmConfig selects and parameterizes the provider.
	LlmConfig llm.Config `json:"llm_config"`
	// MaxTokens optionally caps completions.
	MaxTokens *int32 `json:"max_tokens,omitempty"`
	// Temperature optionally sets the sampling temperature.
	Temperature *float64 `json:"temperature,omitempty"`
	// Capabilities tags what the agent is for ("text", "analysis", ...).
	Capabilities []string `json:"capabilities,omitempty"`
}

// NewConfig creates an agent config with a fresh ID.
func NewConfig(name, description string, llmConfig llm.Config) Config {
	return Config{
		ID:          types.NewAgentID(),
		Name:        name,
		Description: description,
		LlmConfig:   llmConfig,
	}
}

// Builder assembles an agent configuration fluently.
type Builder struct {
	config Config
}

// NewBuilder starts building an agent with the given name and provider
// configuration.
func NewBuilder(name string, llmConfig llm.Config) *Builder {
	return &Builder{config: NewConfig(name, "", llmConfig)}
}

// WithID sets an explicit agent ID.
func (b *Builder) WithID(id types.AgentID) *Builder {
	b.config.ID = id
	return b
}

// WithDescription sets the description.
func (b *Builder) WithDescription(description string) *Builder {
	b.config.Description = description
	return b
}

// WithSystemPrompt sets the system prompt.
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// WithMaxTokens caps completion length.
func (b *Builder) WithMaxTokens(maxTokens int32) *Builder {
	b.config.MaxTokens = &maxTokens
	return b
}

// WithTemperature sets the sampling temperature.
func (b *Builder) WithTemperature(temperature float64) *Builder {
	b.config.Temperature = &temperature
	return b
}

// WithCapabilities tags the agent.
func (b *Builder) WithCapabilities(capabilities ...string) *Builder {
	b.config.Capabilities = append(b.config.Capabilities, capabilities...)
	return b
}

// Build constructs the agent.
func (b *Builder) Build() (*Agent, error) {
	return New(b.config)
}
