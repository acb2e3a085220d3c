package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/InfinitiBit/graphbit-go/graph"
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/types"
)

// executeNode dispatches one attempt to the executor for the node's
// kind. It returns the node output plus executor-specific metadata.
func (e *Executor) executeNode(ctx context.Context, run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	switch resolved.Kind {
	case graph.NodeKindAgent:
		return e.executeAgentNode(ctx, run, node, resolved)
	case graph.NodeKindCondition:
		return e.executeConditionNode(run, node, resolved)
	case graph.NodeKindTransform:
		return e.executeTransformNode(run, node, resolved)
	case graph.NodeKindSplit:
		return map[string]interface{}{"type": "split"}, nil, nil
	case graph.NodeKindJoin:
		return map[string]interface{}{"type": "join"}, nil, nil
	case graph.NodeKindDelay:
		return e.executeDelayNode(ctx, node, resolved)
	case graph.NodeKindHTTPRequest:
		return e.executeHTTPNode(ctx, node, resolved)
	case graph.NodeKindCustom:
		return e.executeCustomNode(ctx, run, node, resolved)
	case graph.NodeKindDocumentLoader:
		return e.executeDocumentLoaderNode(ctx, resolved)
	default:
		return nil, nil, types.WorkflowExecutionError("unknown node kind: %s", resolved.Kind)
	}
}

// executeAgentNode resolves the agent, sends the prompt, and validates
// structured output against the node's schema when one is set.
func (e *Executor) executeAgentNode(ctx context.Context, run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	ag, ok := e.lookupAgent(resolved.AgentID)
	if !ok {
		return nil, nil, types.AgentNotFoundError(resolved.AgentID)
	}

	var tools []llm.ToolDefinition
	for _, name := range resolved.Tools {
		tools = append(tools, llm.ToolDefinition{Name: name})
	}

	message := types.NewAgentMessage(ag.ID(), nil, types.TextContent(resolved.PromptTemplate))
	output, response, err := ag.Execute(ctx, message, tools)
	if err != nil {
		return nil, nil, err
	}

	if node.OutputSchema != nil {
		result := ag.ValidateOutput(response.Content, node.OutputSchema)
		if !result.Valid {
			// Schema misses on model output are transient: the retry
			// loop gives the model another chance.
			validationErr := types.ValidationError("agent output failed schema validation: %s", result.ErrorSummary())
			validationErr.Provider = ag.Client().Provider().Name()
			return nil, nil, validationErr
		}
	}

	if e.costTracker != nil {
		e.costTracker.RecordCall(response.Model, response.Usage, node.ID.String())
	}

	metadata := map[string]interface{}{
		"last_token_usage": response.Usage,
		"finish_reason":    string(response.FinishReason),
		"model":            response.Model,
	}
	if response.HasToolCalls() {
		// Tool calls pass through unchanged for downstream consumers.
		metadata["tool_calls"] = response.ToolCalls
	}
	return output, metadata, nil
}

// executeConditionNode evaluates the resolved boolean expression. The
// truthy outcome becomes the node output and drives conditional-edge
// selection in later batches.
func (e *Executor) executeConditionNode(run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	value, err := evaluateExpression(resolved.Expression, expressionEnv(run.ctx))
	if err != nil {
		return nil, nil, types.WorkflowExecutionError("condition %q failed for node %s: %v", resolved.Expression, node.Name, err)
	}

	outcome := isTruthy(value)
	metadata := map[string]interface{}{"expression": resolved.Expression}
	return outcome, metadata, nil
}

// executeTransformNode evaluates the resolved transformation
// expression; its value replaces the current subject.
func (e *Executor) executeTransformNode(run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	value, err := evaluateExpression(resolved.Transformation, expressionEnv(run.ctx))
	if err != nil {
		return nil, nil, types.WorkflowExecutionError("transformation %q failed for node %s: %v", resolved.Transformation, node.Name, err)
	}
	return value, nil, nil
}

// executeDelayNode suspends for the configured duration; cancellation
// interrupts the wait.
func (e *Executor) executeDelayNode(ctx context.Context, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	duration := time.Duration(resolved.DurationSeconds) * time.Second
	select {
	case <-time.After(duration):
		return map[string]interface{}{"delayed_seconds": resolved.DurationSeconds}, nil, nil
	case <-ctx.Done():
		return nil, nil, types.CancelledError("delay node %s cancelled", node.Name)
	}
}

// executeHTTPNode sends the request with the executor's pooled client.
// 5xx, 429, and 408 responses surface as retryable errors; other
// non-2xx statuses fail permanently.
func (e *Executor) executeHTTPNode(ctx context.Context, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	method := strings.ToUpper(resolved.Method)

	var body io.Reader
	if raw, ok := node.Config["body"]; ok {
		switch v := raw.(type) {
		case string:
			body = strings.NewReader(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, nil, types.ValidationError("http node %s has non-serializable body: %v", node.Name, err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, resolved.URL, body)
	if err != nil {
		return nil, nil, types.ValidationError("http node %s has invalid request: %v", node.Name, err)
	}
	for key, value := range resolved.Headers {
		req.Header.Set(key, value)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, types.CancelledError("http node %s cancelled", node.Name)
		}
		return nil, nil, types.WrapError(types.ErrNetwork, err, "http node %s request failed", node.Name)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, nil, types.WrapError(types.ErrNetwork, err, "http node %s failed to read response", node.Name)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, nil, types.RateLimitError("http", "http node %s throttled: %s", node.Name, resp.Status)
		case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
			httpErr := types.NewError(types.ErrNetwork, "http node %s returned %s", node.Name, resp.Status)
			httpErr.StatusCode = resp.StatusCode
			return nil, nil, httpErr
		default:
			httpErr := types.WorkflowExecutionError("http node %s returned %s", node.Name, resp.Status)
			httpErr.StatusCode = resp.StatusCode
			return nil, nil, httpErr
		}
	}

	var output interface{}
	if err := json.Unmarshal(payload, &output); err != nil {
		output = string(payload)
	}

	metadata := map[string]interface{}{
		"status_code": resp.StatusCode,
		"url":         resolved.URL,
		"method":      method,
	}
	return output, metadata, nil
}

// executeCustomNode resolves the function from the registry and runs
// it.
func (e *Executor) executeCustomNode(ctx context.Context, run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	fn, ok := e.lookupFunction(resolved.FunctionName)
	if !ok {
		return nil, nil, types.WorkflowExecutionError("custom function %q is not registered", resolved.FunctionName)
	}
	output, err := fn(ctx, node, run.ctx)
	if err != nil {
		return nil, nil, err
	}
	return output, map[string]interface{}{"function": resolved.FunctionName}, nil
}

// executeDocumentLoaderNode delegates to the document source
// capability.
func (e *Executor) executeDocumentLoaderNode(ctx context.Context, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	content, err := e.docLoader.Load(ctx, resolved.SourcePath, resolved.DocumentType)
	if err != nil {
		return nil, nil, err
	}

	output := map[string]interface{}{
		"content":       content.Text,
		"source":        content.Source,
		"document_type": content.DocumentType,
		"file_size":     content.FileSize,
	}
	return output, map[string]interface{}{"extracted_at": content.ExtractedAt}, nil
}

// expressionEnv builds the evaluation environment for condition and
// transform expressions: workflow variables at the top level plus the
// node-outputs map under "outputs".
func expressionEnv(wfCtx *types.WorkflowContext) map[string]interface{} {
	env := wfCtx.VariablesSnapshot()
	env["outputs"] = wfCtx.NodeOutputsSnapshot()
	return env
}

// evaluateExpression compiles and runs an expr program against the
// environment.
func evaluateExpression(source string, env map[string]interface{}) (interface{}, error) {
	program, err := expr.Compile(source, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// isTruthy reduces an expression result to a boolean: false, nil, zero
// numbers, empty strings, and "false" are falsy.
func isTruthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && !strings.EqualFold(v, "false")
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	default:
		return true
	}
}
