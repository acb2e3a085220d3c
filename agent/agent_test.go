package agent_test

import (
	"context"
	"testing"

	"github.com/InfinitiBit/graphbit-go/agent"
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

func mockAgent(mock *llm.MockProvider) *agent.Agent {
	cfg := agent.NewConfig("helper", "test agent", llm.OpenAI("sk-test", "gpt-4o-mini"))
	cfg.SystemPrompt = "You are concise."
	return agent.NewWithClient(cfg, llm.WrapClient(mock, cfg.LlmConfig))
}

func TestProcessMessage(t *testing.T) {
	mock := &llm.MockProvider{
		Responses: []llm.Response{{
			Content: "Paris",
			Usage:   llm.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		}},
	}
	ag := mockAgent(mock)
	wfCtx := types.NewWorkflowContext(types.NewWorkflowID())

	sender := types.NewAgentID()
	message := types.NewAgentMessage(sender, nil, types.TextContent("Capital of France?"))

	reply, err := ag.ProcessMessage(context.Background(), message, wfCtx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if reply.Content.Text != "Paris" {
		t.Errorf("reply = %q", reply.Content.Text)
	}
	if reply.Recipient == nil || *reply.Recipient != sender {
		t.Error("reply not addressed to the sender")
	}

	usage, ok := wfCtx.GetMetadata("last_token_usage")
	if !ok {
		t.Fatal("token usage not recorded on the context")
	}
	if u, isUsage := usage.(llm.TokenUsage); !isUsage || u.TotalTokens != 12 {
		t.Errorf("usage = %v", usage)
	}

	// The system prompt leads the request.
	request, _ := mock.LastCall()
	if len(request.Messages) != 2 || request.Messages[0].Role != llm.RoleSystem {
		t.Errorf("request messages = %+v", request.Messages)
	}
}

func TestExecuteParsesJSON(t *testing.T) {
	mock := &llm.MockProvider{
		Responses: []llm.Response{
			{Content: `{"score": 0.9}`},
			{Content: "plain text answer"},
		},
	}
	ag := mockAgent(mock)
	message := types.NewAgentMessage(ag.ID(), nil, types.TextContent("rate this"))

	output, _, err := ag.Execute(context.Background(), message, nil)
	if err != nil {
		t.Fatal(err)
	}
	parsed, isMap := output.(map[string]interface{})
	if !isMap || parsed["score"] != 0.9 {
		t.Errorf("output = %v (%T)", output, output)
	}

	output, _, err = ag.Execute(context.Background(), message, nil)
	if err != nil {
		t.Fatal(err)
	}
	if output != "plain text answer" {
		t.Errorf("output = %v", output)
	}
}

func TestValidateOutput(t *testing.T) {
	ag := mockAgent(&llm.MockProvider{})
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"answer"},
	}

	if result := ag.ValidateOutput(`{"answer": "yes"}`, schema); !result.Valid {
		t.Errorf("valid output rejected: %s", result.ErrorSummary())
	}
	if result := ag.ValidateOutput(`{}`, schema); result.Valid {
		t.Error("invalid output accepted")
	}
}

func TestBuilderConfig(t *testing.T) {
	builder := agent.NewBuilder("writer", llm.OpenAI("sk-test", "gpt-4o-mini")).
		WithDescription("writes prose").
		WithSystemPrompt("Write well.").
		WithMaxTokens(512).
		WithTemperature(0.7).
		WithCapabilities("text")

	ag, err := builder.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	cfg := ag.Config()
	if cfg.Name != "writer" || cfg.SystemPrompt != "Write well." {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.MaxTokens == nil || *cfg.MaxTokens != 512 {
		t.Error("max tokens lost")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := agent.New(agent.NewConfig("broken", "", llm.OpenAI("wrong-prefix", "gpt-4o"))); err == nil {
		t.Error("malformed API key accepted")
	}
}
