package embeddings

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/InfinitiBit/graphbit-go/types"
)

// openaiProvider embeds through the OpenAI embeddings endpoint.
type openaiProvider struct {
	model  string
	client openaisdk.Client
}

func newOpenAIProvider(config Config) *openaiProvider {
	model := config.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &openaiProvider{model: model, client: openaisdk.NewClient(opts...)}
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Model() string { return p.model }

func (p *openaiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(p.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
				return nil, types.AuthError("openai", "embedding API key rejected")
			}
			return nil, types.LlmProviderError("openai", apiErr.StatusCode, "embedding request failed: %v", apiErr.Message)
		}
		return nil, types.WrapError(types.ErrNetwork, err, "openai embedding request failed")
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vector[i] = float32(v)
		}
		index := int(item.Index)
		if index >= 0 && index < len(vectors) {
			vectors[index] = vector
		}
	}
	return vectors, nil
}
