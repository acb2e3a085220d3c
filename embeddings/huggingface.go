package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/InfinitiBit/graphbit-go/types"
)

const huggingFaceInferenceBaseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction"

// huggingFaceProvider embeds through the HuggingFace inference
// feature-extraction pipeline.
type huggingFaceProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func newHuggingFaceProvider(config Config) *huggingFaceProvider {
	model := config.Model
	if model == "" {
		model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = huggingFaceInferenceBaseURL
	}
	return &huggingFaceProvider{
		apiKey:  config.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *huggingFaceProvider) Name() string { return "huggingface" }

func (p *huggingFaceProvider) Model() string { return p.model }

func (p *huggingFaceProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{"inputs": texts})
	if err != nil {
		return nil, types.WrapError(types.ErrConfiguration, err, "failed to encode embedding request")
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, types.WrapError(types.ErrConfiguration, err, "failed to build embedding request")
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.ErrNetwork, err, "huggingface embedding request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.WrapError(types.ErrNetwork, err, "failed to read embedding response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.AuthError("huggingface", "embedding API key rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.RateLimitError("huggingface", "embedding rate limited")
	case resp.StatusCode != http.StatusOK:
		return nil, types.LlmProviderError("huggingface", resp.StatusCode, "embedding request failed: %s", resp.Status)
	}

	var vectors [][]float32
	if err := json.Unmarshal(body, &vectors); err != nil {
		return nil, types.WrapError(types.ErrLlmProvider, err, "failed to decode embedding response")
	}
	if len(vectors) != len(texts) {
		return nil, types.MemoryError("embedding provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}
