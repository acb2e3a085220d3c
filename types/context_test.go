package types_test

import (
	"testing"

	"github.com/InfinitiBit/graphbit-go/types"
)

func TestNodeOutputDualKeys(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())
	nodeID := types.NewNodeID()

	ctx.SetNodeOutput(nodeID, "analysis result")
	ctx.SetNodeOutputByName("analyzer", "analysis result")

	byID, ok := ctx.GetNodeOutput(nodeID.String())
	if !ok || byID != "analysis result" {
		t.Errorf("lookup by ID failed: %v, %t", byID, ok)
	}
	byName, ok := ctx.GetNodeOutput("analyzer")
	if !ok || byName != "analysis result" {
		t.Errorf("lookup by name failed: %v, %t", byName, ok)
	}
}

func TestGetNestedOutput(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())
	ctx.SetNodeOutputByName("scorer", map[string]interface{}{
		"result": map[string]interface{}{"score": 0.92, "label": "positive"},
		"items":  []interface{}{"a", "b"},
	})

	t.Run("nested path", func(t *testing.T) {
		value, ok := ctx.GetNestedOutput("scorer.result.label")
		if !ok || value != "positive" {
			t.Errorf("got %v, %t", value, ok)
		}
	})

	t.Run("array index", func(t *testing.T) {
		value, ok := ctx.GetNestedOutput("scorer.items.1")
		if !ok || value != "b" {
			t.Errorf("got %v, %t", value, ok)
		}
	})

	t.Run("bare reference returns whole output", func(t *testing.T) {
		value, ok := ctx.GetNestedOutput("scorer")
		if !ok {
			t.Fatal("bare reference not found")
		}
		if _, isMap := value.(map[string]interface{}); !isMap {
			t.Errorf("expected map output, got %T", value)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		if _, ok := ctx.GetNestedOutput("scorer.result.missing"); ok {
			t.Error("missing path should not resolve")
		}
	})

	t.Run("missing node", func(t *testing.T) {
		if _, ok := ctx.GetNestedOutput("nobody.field"); ok {
			t.Error("missing node should not resolve")
		}
	})
}

func TestWorkflowStateTransitions(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())

	if ctx.CurrentState().Status != types.StatusPending {
		t.Errorf("initial status = %s, want pending", ctx.CurrentState().Status)
	}

	nodeID := types.NewNodeID()
	ctx.SetState(types.StateRunning(nodeID))
	state := ctx.CurrentState()
	if !state.IsRunning() || state.CurrentNode == nil || *state.CurrentNode != nodeID {
		t.Errorf("running state malformed: %+v", state)
	}
	if state.IsTerminal() {
		t.Error("running must not be terminal")
	}

	ctx.Complete()
	if !ctx.CurrentState().IsTerminal() {
		t.Error("completed must be terminal")
	}
	if ctx.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestWorkflowStateTerminality(t *testing.T) {
	cases := []struct {
		state    types.WorkflowState
		terminal bool
	}{
		{types.StatePending(), false},
		{types.StateRunning(types.NewNodeID()), false},
		{types.StatePaused(types.NewNodeID(), "manual"), false},
		{types.StateCompleted(), true},
		{types.StateFailed("boom"), true},
		{types.StateCancelled(), true},
	}

	for _, tc := range cases {
		if tc.state.IsTerminal() != tc.terminal {
			t.Errorf("state %s terminal = %t, want %t", tc.state.Status, tc.state.IsTerminal(), tc.terminal)
		}
	}
}

func TestFailRecordsError(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())
	ctx.Fail("node exploded")

	state := ctx.CurrentState()
	if state.Status != types.StatusFailed {
		t.Errorf("status = %s, want failed", state.Status)
	}
	if state.Error != "node exploded" {
		t.Errorf("error = %q", state.Error)
	}
}

func TestVariables(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())
	ctx.SetVariable("input", "hello")

	value, ok := ctx.GetVariable("input")
	if !ok || value != "hello" {
		t.Errorf("variable lookup failed: %v, %t", value, ok)
	}

	snapshot := ctx.VariablesSnapshot()
	snapshot["input"] = "mutated"
	if value, _ := ctx.GetVariable("input"); value != "hello" {
		t.Error("snapshot mutation leaked into the context")
	}
}
