package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/InfinitiBit/graphbit-go/llm"
)

func TestRequestBuilders(t *testing.T) {
	request := llm.RequestWithMessages(
		llm.SystemMessage("be terse"),
		llm.UserMessage("hello"),
	).WithMaxTokens(256).WithTemperature(0.2).WithTopP(0.9).
		WithTools(llm.ToolDefinition{Name: "search"}).
		WithExtra("seed", 42)

	if len(request.Messages) != 2 {
		t.Fatalf("message count = %d", len(request.Messages))
	}
	if request.Messages[0].Role != llm.RoleSystem || request.Messages[1].Role != llm.RoleUser {
		t.Error("roles misassigned")
	}
	if request.MaxTokens == nil || *request.MaxTokens != 256 {
		t.Error("max tokens not set")
	}
	if request.Temperature == nil || *request.Temperature != 0.2 {
		t.Error("temperature not set")
	}
	if len(request.Tools) != 1 || request.Tools[0].Name != "search" {
		t.Error("tools not attached")
	}
	if request.Extra["seed"] != 42 {
		t.Error("extra params not attached")
	}
}

func TestEstimateUsage(t *testing.T) {
	usage := llm.EstimateUsage(400, 100)
	if usage.PromptTokens != 100 || usage.CompletionTokens != 25 {
		t.Errorf("usage = %+v", usage)
	}
	if usage.TotalTokens != 125 {
		t.Errorf("total = %d", usage.TotalTokens)
	}
	if usage.IsEmpty() {
		t.Error("non-zero usage reported empty")
	}
	if !(llm.TokenUsage{}).IsEmpty() {
		t.Error("zero usage not reported empty")
	}
}

func TestMockProviderScripting(t *testing.T) {
	mock := &llm.MockProvider{
		Responses: []llm.Response{
			{Content: "first"},
			{Content: "second"},
		},
	}

	ctx := context.Background()
	for _, want := range []string{"first", "second", "second"} {
		resp, err := mock.Complete(ctx, llm.NewRequest("hi"))
		if err != nil {
			t.Fatal(err)
		}
		if resp.Content != want {
			t.Errorf("content = %q, want %q", resp.Content, want)
		}
		if resp.Usage.IsEmpty() {
			t.Error("mock did not estimate usage")
		}
	}
	if mock.CallCount() != 3 {
		t.Errorf("call count = %d", mock.CallCount())
	}
}

func TestMockProviderErrorInjection(t *testing.T) {
	boom := errors.New("api down")
	mock := &llm.MockProvider{Err: boom}

	if _, err := mock.Complete(context.Background(), llm.NewRequest("hi")); !errors.Is(err, boom) {
		t.Errorf("error = %v", err)
	}
}

func TestBaseProviderStreamUnsupported(t *testing.T) {
	mock := &llm.MockProvider{}
	if _, err := mock.Stream(context.Background(), llm.NewRequest("hi")); !errors.Is(err, llm.ErrStreamingNotSupported) {
		t.Errorf("stream error = %v", err)
	}
	if mock.SupportsStreaming() {
		t.Error("base provider claims streaming support")
	}
}
