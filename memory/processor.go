package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Action is what the decision engine wants done with a fact.
type Action string

// Decision actions.
const (
	// ActionAdd stores the fact as a new memory.
	ActionAdd Action = "ADD"
	// ActionUpdate rewrites an existing memory with the fact.
	ActionUpdate Action = "UPDATE"
	// ActionDelete removes a memory the fact invalidates.
	ActionDelete Action = "DELETE"
	// ActionNoop ignores the fact.
	ActionNoop Action = "NOOP"
)

// ActionFromString parses an action leniently; unknown values map to
// NOOP.
func ActionFromString(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADD":
		return ActionAdd
	case "UPDATE":
		return ActionUpdate
	case "DELETE":
		return ActionDelete
	default:
		return ActionNoop
	}
}

// Decision is the decision engine's verdict for one fact.
type Decision struct {
	// Fact is the extracted factual statement.
	Fact string `json:"fact"`
	// Action is what to do with it.
	Action Action `json:"action"`
	// TargetMemoryID names the memory to update or delete.
	TargetMemoryID string `json:"target_memory_id,omitempty"`
}

const factExtractionPrompt = "You are a memory extraction assistant. Your task is to extract important facts, " +
	"preferences, and information from the conversation that would be useful to remember " +
	"for future interactions.\n\n" +
	"Rules:\n" +
	"- Extract only factual, specific information (not greetings or filler).\n" +
	"- Each fact should be a single, self-contained sentence.\n" +
	"- Do not duplicate facts.\n" +
	"- If no meaningful facts exist, return an empty array.\n\n" +
	"Return a JSON array of strings. Example: [\"User lives in Munich\", \"User prefers dark mode\"]"

const decisionPrompt = "You are a memory management assistant. Given new facts and existing memories, " +
	"decide what action to take for each fact.\n\n" +
	"Actions:\n" +
	"- ADD: The fact is new information not captured by any existing memory.\n" +
	"- UPDATE: The fact refines or corrects an existing memory. Provide the target memory ID.\n" +
	"- DELETE: The fact contradicts or invalidates an existing memory. Provide the target memory ID.\n" +
	"- NOOP: The fact is already captured or is not worth storing.\n\n" +
	"Return a JSON array of objects with keys: \"fact\", \"action\", \"target_memory_id\" (null if ADD/NOOP).\n" +
	"Example: [{\"fact\":\"User lives in Berlin\",\"action\":\"UPDATE\",\"target_memory_id\":\"<uuid>\"}]"

// Processor drives LLM-mediated fact extraction and memory
// consolidation decisions.
type Processor struct {
	client      *llm.Client
	maxTokens   int32
	temperature float64
}

// NewProcessor creates a processor around an LLM client.
func NewProcessor(client *llm.Client, maxTokens int32, temperature float64) *Processor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Processor{client: client, maxTokens: maxTokens, temperature: temperature}
}

// ExtractFacts asks the LLM for concise factual strings from a
// conversation. Returns an empty slice when nothing is memorable or
// the output cannot be parsed.
func (p *Processor) ExtractFacts(ctx context.Context, messages []llm.Message) ([]string, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(m.Role), m.Content))
	}
	conversation := strings.Join(lines, "\n")

	request := llm.RequestWithMessages(
		llm.SystemMessage(factExtractionPrompt),
		llm.UserMessage("Extract facts from this conversation:\n\n"+conversation),
	).WithMaxTokens(p.maxTokens).WithTemperature(p.temperature)

	response, err := p.client.Complete(ctx, request)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "fact extraction LLM call failed")
	}
	return parseStringArray(response.Content), nil
}

// DecideActions asks the LLM to classify each fact against the
// existing memories for the same scope. Parsing is best-effort
// tolerant: malformed entries are dropped.
func (p *Processor) DecideActions(ctx context.Context, facts []string, existing []*FactRecord) ([]Decision, error) {
	if len(facts) == 0 {
		return nil, nil
	}

	factLines := make([]string, 0, len(facts))
	for i, fact := range facts {
		factLines = append(factLines, fmt.Sprintf("%d. %s", i+1, fact))
	}

	memoriesList := "No existing memories."
	if len(existing) > 0 {
		memoryLines := make([]string, 0, len(existing))
		for _, m := range existing {
			memoryLines = append(memoryLines, fmt.Sprintf("ID: %s | Content: %s", m.ID, m.Content))
		}
		memoriesList = strings.Join(memoryLines, "\n")
	}

	request := llm.RequestWithMessages(
		llm.SystemMessage(decisionPrompt),
		llm.UserMessage(fmt.Sprintf("New facts:\n%s\n\nExisting memories:\n%s",
			strings.Join(factLines, "\n"), memoriesList)),
	).WithMaxTokens(p.maxTokens).WithTemperature(p.temperature)

	response, err := p.client.Complete(ctx, request)
	if err != nil {
		return nil, types.WrapError(types.ErrMemory, err, "decision LLM call failed")
	}
	return parseDecisions(response.Content), nil
}

func roleLabel(role llm.Role) string {
	switch role {
	case llm.RoleUser:
		return "User"
	case llm.RoleAssistant:
		return "Assistant"
	case llm.RoleSystem:
		return "System"
	case llm.RoleTool:
		return "Tool"
	default:
		return string(role)
	}
}

// parseStringArray pulls a JSON string array out of potentially messy
// LLM output by locating the first balanced [...] slice.
func parseStringArray(text string) []string {
	trimmed := strings.TrimSpace(text)

	var direct []string
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil {
		return direct
	}

	if slice, ok := firstArraySlice(trimmed); ok {
		var parsed []string
		if err := json.Unmarshal([]byte(slice), &parsed); err == nil {
			return parsed
		}
	}
	return []string{}
}

// parseDecisions decodes the decision array, tolerating surrounding
// prose and skipping entries without a fact or action.
func parseDecisions(text string) []Decision {
	trimmed := strings.TrimSpace(text)
	payload := trimmed
	if slice, ok := firstArraySlice(trimmed); ok {
		payload = slice
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}

	decisions := make([]Decision, 0, len(raw))
	for _, item := range raw {
		fact, _ := item["fact"].(string)
		actionStr, _ := item["action"].(string)
		if fact == "" || actionStr == "" {
			continue
		}
		decision := Decision{Fact: fact, Action: ActionFromString(actionStr)}
		if target, ok := item["target_memory_id"].(string); ok {
			decision.TargetMemoryID = target
		}
		decisions = append(decisions, decision)
	}
	return decisions
}

// firstArraySlice returns the first balanced [...] substring, counting
// bracket depth from the first '['.
func firstArraySlice(text string) (string, bool) {
	start := strings.Index(text, "[")
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
