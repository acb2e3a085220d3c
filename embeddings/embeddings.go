// Package embeddings provides the provider-normalized batch embedding
// capability used by memory retrieval and the vector index.
package embeddings

import (
	"context"
	"math"

	"github.com/InfinitiBit/graphbit-go/types"
)

// Provider is the capability every embedding backend implements.
type Provider interface {
	// Name returns the provider tag.
	Name() string
	// Model returns the embedding model name.
	Model() string
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderKind tags the supported embedding backends.
type ProviderKind string

// Supported embedding backends.
const (
	ProviderOpenAI      ProviderKind = "openai"
	ProviderHuggingFace ProviderKind = "huggingface"
)

// Config selects and parameterizes an embedding backend.
type Config struct {
	Provider ProviderKind `json:"provider"`
	APIKey   string       `json:"api_key,omitempty"`
	Model    string       `json:"model"`
	BaseURL  string       `json:"base_url,omitempty"`
}

// OpenAI creates an OpenAI embedding configuration.
func OpenAI(apiKey, model string) Config {
	return Config{Provider: ProviderOpenAI, APIKey: apiKey, Model: model}
}

// HuggingFace creates a HuggingFace embedding configuration.
func HuggingFace(apiKey, model string) Config {
	return Config{Provider: ProviderHuggingFace, APIKey: apiKey, Model: model}
}

// Service wraps a provider with convenience helpers for single and
// batch embedding.
type Service struct {
	provider Provider
}

// NewService builds the provider selected by the configuration.
func NewService(config Config) (*Service, error) {
	switch config.Provider {
	case ProviderOpenAI:
		return &Service{provider: newOpenAIProvider(config)}, nil
	case ProviderHuggingFace:
		return &Service{provider: newHuggingFaceProvider(config)}, nil
	default:
		return nil, types.ConfigurationError("unsupported embedding provider: %s", config.Provider)
	}
}

// WrapService wraps an already-built provider.
func WrapService(provider Provider) *Service {
	return &Service{provider: provider}
}

// Provider returns the underlying provider.
func (s *Service) Provider() Provider { return s.provider }

// EmbedText embeds a single text.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, types.MemoryError("embedding provider returned no vectors")
	}
	return vectors[0], nil
}

// EmbedTexts embeds a batch of texts, preserving input order.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.provider.Embed(ctx, texts)
}

// CosineSimilarity computes the cosine similarity of two vectors.
//
// The result is clamped to [-1, 1]; identical non-zero vectors yield
// 1.0 within floating-point tolerance. Vectors of different dimensions
// are an error; a zero vector yields similarity 0.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, types.ValidationError("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return float32(similarity), nil
}
