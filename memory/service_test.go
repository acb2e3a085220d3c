package memory_test

import (
	"context"
	"testing"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/memory"
)

func scriptedProcessor(responses ...string) *memory.Processor {
	mock := &llm.MockProvider{}
	for _, content := range responses {
		mock.Responses = append(mock.Responses, llm.Response{Content: content})
	}
	client := llm.WrapClient(mock, llm.OpenAI("sk-test", "gpt-4o-mini"))
	return memory.NewProcessor(client, 512, 0.0)
}

func TestServiceAddExtractsAndStores(t *testing.T) {
	store := newTestStore(t)
	processor := scriptedProcessor(
		`["User lives in Munich"]`,
		`[{"fact":"User lives in Munich","action":"ADD","target_memory_id":null}]`,
	)
	service := memory.NewService(store, processor, nil)
	scope := memory.Scope{UserID: "u1"}

	applied, err := service.Add(context.Background(), []llm.Message{
		llm.UserMessage("I just moved to Munich!"),
		llm.AssistantMessage("Nice, welcome to Bavaria."),
	}, scope)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Decision.Action != memory.ActionAdd {
		t.Fatalf("applied = %+v", applied)
	}

	records, err := service.GetAll(context.Background(), scope)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Content != "User lives in Munich" {
		t.Fatalf("records = %+v", records)
	}

	history, err := service.History(context.Background(), applied[0].MemoryID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Action != memory.ActionAdd {
		t.Errorf("history = %+v", history)
	}
}

func TestServiceUpdateAndDeleteDecisions(t *testing.T) {
	store := newTestStore(t)
	scope := memory.Scope{UserID: "u1"}

	existing := memory.NewFactRecord("User lives in Munich", scope)
	if err := store.Insert(context.Background(), existing); err != nil {
		t.Fatal(err)
	}

	processor := scriptedProcessor(
		`["User lives in Berlin"]`,
		`[{"fact":"User lives in Berlin","action":"UPDATE","target_memory_id":"`+existing.ID.String()+`"}]`,
	)
	service := memory.NewService(store, processor, nil)

	applied, err := service.Add(context.Background(), []llm.Message{
		llm.UserMessage("Actually I moved to Berlin."),
	}, scope)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Decision.Action != memory.ActionUpdate {
		t.Fatalf("applied = %+v", applied)
	}

	updated, err := service.Get(context.Background(), existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content != "User lives in Berlin" {
		t.Errorf("content = %q", updated.Content)
	}

	history, err := service.History(context.Background(), existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].OldContent != "User lives in Munich" {
		t.Errorf("history = %+v", history)
	}

	if err := service.Delete(context.Background(), existing.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := service.Get(context.Background(), existing.ID); err == nil {
		t.Error("deleted fact still readable")
	}
}

func TestServiceHallucinatedTargetDegradesToNoop(t *testing.T) {
	store := newTestStore(t)
	processor := scriptedProcessor(
		`["Some fact"]`,
		`[{"fact":"Some fact","action":"UPDATE","target_memory_id":"not-a-uuid"}]`,
	)
	service := memory.NewService(store, processor, nil)

	applied, err := service.Add(context.Background(), []llm.Message{llm.UserMessage("hi")}, memory.Scope{})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Decision.Action != memory.ActionNoop {
		t.Errorf("applied = %+v, want degraded NOOP", applied)
	}
}

func TestServiceSearchKeywordFallback(t *testing.T) {
	store := newTestStore(t)
	service := memory.NewService(store, nil, nil)
	scope := memory.Scope{UserID: "u1"}

	contents := []string{
		"User prefers dark mode",
		"User lives in Munich",
		"User owns a bicycle",
	}
	for _, content := range contents {
		if err := store.Insert(context.Background(), memory.NewFactRecord(content, scope)); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := service.Search(context.Background(), "dark mode", scope, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].Record.Content != "User prefers dark mode" {
		t.Errorf("top match = %q", matches[0].Record.Content)
	}

	// Scope isolation: another user sees nothing.
	other, err := service.Search(context.Background(), "dark mode", memory.Scope{UserID: "u2"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("foreign scope matched %d records", len(other))
	}
}

func TestServiceDeleteAll(t *testing.T) {
	store := newTestStore(t)
	service := memory.NewService(store, nil, nil)

	scope := memory.Scope{RunID: "r1"}
	for i := 0; i < 3; i++ {
		if err := store.Insert(context.Background(), memory.NewFactRecord("run fact", scope)); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := service.DeleteAll(context.Background(), scope)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d", deleted)
	}
}

func TestProcessorParsingTolerance(t *testing.T) {
	processor := scriptedProcessor(
		"Sure! Here are the facts:\n[\"fact one\", \"fact two\"]\nHope that helps.",
	)

	facts, err := processor.ExtractFacts(context.Background(), []llm.Message{llm.UserMessage("chat")})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(facts) != 2 || facts[0] != "fact one" {
		t.Errorf("facts = %v", facts)
	}
}

func TestProcessorEmptyInputs(t *testing.T) {
	processor := scriptedProcessor(`[]`)

	facts, err := processor.ExtractFacts(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 0 {
		t.Errorf("facts from empty conversation = %v", facts)
	}

	decisions, err := processor.DecideActions(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 0 {
		t.Errorf("decisions from no facts = %v", decisions)
	}
}
