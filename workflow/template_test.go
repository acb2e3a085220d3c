package workflow_test

import (
	"testing"

	"github.com/InfinitiBit/graphbit-go/types"
	"github.com/InfinitiBit/graphbit-go/workflow"
)

func TestResolveTemplateVariables(t *testing.T) {
	ctx := types.NewWorkflowContext(types.NewWorkflowID())
	ctx.SetVariable("input", "hello")
	ctx.SetVariable("count", 3)
	ctx.SetNodeOutputByName("X", map[string]interface{}{"field": "v"})
	ctx.SetNodeOutputByName("plain", "raw text")

	t.Run("node output round trip", func(t *testing.T) {
		got := workflow.ResolveTemplateVariables("value is {{node.X.field}}", ctx)
		if got != "value is v" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("bare node reference", func(t *testing.T) {
		got := workflow.ResolveTemplateVariables("said: {{node.plain}}", ctx)
		if got != "said: raw text" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("variables substitute with quotes stripped", func(t *testing.T) {
		got := workflow.ResolveTemplateVariables("say {input} x{count}", ctx)
		if got != "say hello x3" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("missing node reference stays in place", func(t *testing.T) {
		template := "keep {{node.X.missing}} and {{node.nobody}}"
		if got := workflow.ResolveTemplateVariables(template, ctx); got != template {
			t.Errorf("got %q, want unchanged", got)
		}
	})

	t.Run("missing variable stays in place", func(t *testing.T) {
		if got := workflow.ResolveTemplateVariables("{unknown}", ctx); got != "{unknown}" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("structured output renders as JSON", func(t *testing.T) {
		ctx.SetNodeOutputByName("obj", map[string]interface{}{"k": float64(1)})
		got := workflow.ResolveTemplateVariables("{{node.obj}}", ctx)
		if got != `{"k":1}` {
			t.Errorf("got %q", got)
		}
	})
}
