package workflow

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/InfinitiBit/graphbit-go/agent"
	"github.com/InfinitiBit/graphbit-go/docloader"
	"github.com/InfinitiBit/graphbit-go/emit"
	"github.com/InfinitiBit/graphbit-go/graph"
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/memory"
	"github.com/InfinitiBit/graphbit-go/types"
)

// CustomFunc is a pluggable node implementation invoked by Custom
// nodes. It receives the node definition and the run context, and
// returns the node output.
type CustomFunc func(ctx context.Context, node *graph.Node, wfCtx *types.WorkflowContext) (interface{}, error)

// Executor runs workflows: it computes dependency-ordered batches,
// dispatches each batch's nodes in parallel under the concurrency
// manager, and wraps every node with template resolution, circuit
// breaking, per-attempt timeouts, and the node's retry policy.
//
// The workflow context is single-writer: all result recording happens
// on the collecting goroutine, so later batches observe every earlier
// write.
type Executor struct {
	mu        sync.RWMutex
	agents    map[types.AgentID]*agent.Agent
	functions map[string]CustomFunc

	concurrency    *types.ConcurrencyManager
	breakers       *types.CircuitBreakerRegistry
	emitter        emit.Emitter
	metrics        *Metrics
	costTracker    *llm.CostTracker
	docLoader      *docloader.Loader
	memoryManager  *memory.Manager
	httpClient     *http.Client
	defaultTimeout time.Duration
}

// NewExecutor creates an executor with the given options.
func NewExecutor(opts ...Option) *Executor {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	docLoader := cfg.docLoader
	if docLoader == nil {
		docLoader = docloader.New()
	}
	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Executor{
		agents:         make(map[types.AgentID]*agent.Agent, 8),
		functions:      make(map[string]CustomFunc, 8),
		concurrency:    types.NewConcurrencyManager(cfg.globalMax, cfg.perKindLimits),
		breakers:       types.NewCircuitBreakerRegistry(cfg.breakerConfig),
		emitter:        cfg.emitter,
		metrics:        cfg.metrics,
		costTracker:    cfg.costTracker,
		docLoader:      docLoader,
		memoryManager:  cfg.memoryManager,
		httpClient:     httpClient,
		defaultTimeout: cfg.defaultTimeout,
	}
}

// RegisterAgent makes an agent resolvable from Agent nodes.
func (e *Executor) RegisterAgent(a *agent.Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents[a.ID()] = a
}

// RegisterFunction makes a function resolvable from Custom nodes.
func (e *Executor) RegisterFunction(name string, fn CustomFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions[name] = fn
}

// Memory returns the attached memory manager (nil when unset).
func (e *Executor) Memory() *memory.Manager { return e.memoryManager }

// ConcurrencyStats snapshots the concurrency manager.
func (e *Executor) ConcurrencyStats() types.ConcurrencyStats { return e.concurrency.Stats() }

// BreakerStates snapshots the circuit breakers.
func (e *Executor) BreakerStates() map[string]types.CircuitState { return e.breakers.States() }

func (e *Executor) lookupAgent(id types.AgentID) (*agent.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	return a, ok
}

func (e *Executor) lookupFunction(name string) (CustomFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.functions[name]
	return fn, ok
}

// Execute runs the workflow to completion and returns its context.
// The returned context is never nil: on failure its state carries the
// error alongside every node result recorded up to that point.
func (e *Executor) Execute(ctx context.Context, wf *Workflow) (*types.WorkflowContext, error) {
	return e.ExecuteWithContext(ctx, wf, nil)
}

// ExecuteWithContext runs the workflow against a prepared context
// (variables pre-populated). A nil context creates a fresh one.
func (e *Executor) ExecuteWithContext(ctx context.Context, wf *Workflow, wfCtx *types.WorkflowContext) (*types.WorkflowContext, error) {
	if wfCtx == nil {
		wfCtx = types.NewWorkflowContext(wf.ID)
	}

	if err := wf.Validate(); err != nil {
		wfCtx.Fail(err.Error())
		e.metrics.workflowFinished("failed")
		return wfCtx, err
	}

	batches, err := createDependencyBatches(wf.Graph)
	if err != nil {
		wfCtx.Fail(err.Error())
		e.metrics.workflowFinished("failed")
		return wfCtx, err
	}

	e.emitter.Emit(emit.Event{
		WorkflowID: wf.ID.String(),
		Msg:        "workflow_started",
		Meta:       map[string]interface{}{"name": wf.Name, "batches": len(batches)},
		Timestamp:  time.Now().UTC(),
	})

	run := &runState{
		workflow:    wf,
		ctx:         wfCtx,
		results:     make(map[types.NodeID]*types.NodeExecutionResult, wf.Graph.NodeCount()),
		skipped:     make(map[types.NodeID]bool, 4),
		condResults: make(map[types.NodeID]bool, 4),
	}

	startStats := e.concurrency.Stats()
	started := time.Now()
	maxConcurrent := 0

	for _, batch := range batches {
		if ctx.Err() != nil {
			wfCtx.Cancel()
			e.emitWorkflowEnd(wf, "workflow_cancelled")
			e.metrics.workflowFinished("cancelled")
			return wfCtx, types.CancelledError("workflow cancelled")
		}

		executable := make([]*graph.Node, 0, len(batch))
		for _, node := range batch {
			if e.shouldExecute(run, node) {
				executable = append(executable, node)
			} else {
				run.skipped[node.ID] = true
				e.emitter.Emit(emit.Event{
					WorkflowID: wf.ID.String(),
					NodeID:     node.ID.String(),
					NodeName:   node.Name,
					Msg:        "node_skipped",
					Timestamp:  time.Now().UTC(),
				})
			}
		}
		if len(executable) == 0 {
			continue
		}
		if len(executable) > maxConcurrent {
			maxConcurrent = len(executable)
		}

		wfCtx.SetState(types.StateRunning(executable[0].ID))

		if failure := e.runBatch(ctx, run, executable); failure != nil {
			if types.IsKind(failure, types.ErrCancelled) {
				wfCtx.Cancel()
				e.emitWorkflowEnd(wf, "workflow_cancelled")
				e.metrics.workflowFinished("cancelled")
				return wfCtx, failure
			}
			e.finishStats(run, started, maxConcurrent, startStats)
			wfCtx.Fail(failure.Error())
			e.emitWorkflowEnd(wf, "workflow_failed")
			e.metrics.workflowFinished("failed")
			return wfCtx, failure
		}
	}

	e.finishStats(run, started, maxConcurrent, startStats)
	wfCtx.Complete()
	e.emitWorkflowEnd(wf, "workflow_completed")
	e.metrics.workflowFinished("completed")
	return wfCtx, nil
}

// runState tracks per-run bookkeeping owned by the scheduler
// goroutine.
type runState struct {
	workflow    *Workflow
	ctx         *types.WorkflowContext
	results     map[types.NodeID]*types.NodeExecutionResult
	skipped     map[types.NodeID]bool
	condResults map[types.NodeID]bool
}

// runBatch dispatches the batch's nodes in parallel and serializes the
// result recording. It returns the error that should fail the
// workflow, or nil when execution may continue.
func (e *Executor) runBatch(ctx context.Context, run *runState, batch []*graph.Node) error {
	type dispatchResult struct {
		node   *graph.Node
		result *types.NodeExecutionResult
	}

	results := make(chan dispatchResult, len(batch))
	var wg sync.WaitGroup

	for _, node := range batch {
		wg.Add(1)
		go func(node *graph.Node) {
			defer wg.Done()
			results <- dispatchResult{node: node, result: e.executeNodeWithPolicies(ctx, run, node)}
		}(node)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single-writer section: every context mutation for this batch
	// happens here, so subsequent batches observe all prior writes.
	var failure error
	for item := range results {
		node, result := item.node, item.result
		run.results[node.ID] = result

		if result.Success {
			run.ctx.SetNodeOutput(node.ID, result.Output)
			run.ctx.SetNodeOutputByName(node.Name, result.Output)
			if node.NodeType.Kind == graph.NodeKindCondition {
				if truthy, ok := result.Output.(bool); ok {
					run.condResults[node.ID] = truthy
				}
			}
			if usage, ok := result.Metadata["last_token_usage"]; ok {
				run.ctx.SetMetadata("last_token_usage", usage)
			}
		} else {
			// Record the failed result too so callers can inspect the
			// error detail by node reference.
			failureRecord := map[string]interface{}{
				"success": false,
				"error":   result.Error,
			}
			run.ctx.SetNodeOutput(node.ID, failureRecord)
			run.ctx.SetNodeOutputByName(node.Name, failureRecord)
			if !e.hasErrorHandlingEdge(run.workflow, node.ID) {
				if ctx.Err() != nil {
					failure = types.CancelledError("workflow cancelled during node %s", node.Name)
				} else if failure == nil {
					failure = types.WorkflowExecutionError("node %s failed after %d retries: %s",
						node.Name, result.RetryCount, result.Error)
				}
			}
		}

		e.emitter.Emit(emit.Event{
			WorkflowID: run.workflow.ID.String(),
			NodeID:     node.ID.String(),
			NodeName:   node.Name,
			Msg:        "node_end",
			Meta: map[string]interface{}{
				"success":     result.Success,
				"retry_count": result.RetryCount,
				"duration_ms": result.Duration.Milliseconds(),
			},
			Timestamp: time.Now().UTC(),
		})
	}

	return failure
}

// executeNodeWithPolicies wraps one node with template resolution,
// permit acquisition, circuit breaking, per-attempt timeout, and the
// node's retry policy.
func (e *Executor) executeNodeWithPolicies(ctx context.Context, run *runState, node *graph.Node) *types.NodeExecutionResult {
	started := time.Now()
	result := types.FailureResult(node.ID, "not executed")
	result.StartedAt = started.UTC()

	e.emitter.Emit(emit.Event{
		WorkflowID: run.workflow.ID.String(),
		NodeID:     node.ID.String(),
		NodeName:   node.Name,
		Msg:        "node_start",
		Timestamp:  started.UTC(),
	})
	e.metrics.nodeStarted()

	kind := admissionKind(node)
	resolved := e.resolveNodeTemplates(node, run.ctx)

	permitStart := time.Now()
	permits, err := e.concurrency.AcquirePermits(ctx, types.TaskInfo{NodeType: kind, TaskID: node.ID})
	if err != nil {
		e.metrics.nodeFinished(kind, time.Since(started), false)
		result.Error = err.Error()
		return result.WithDuration(time.Since(started)).MarkCompleted()
	}
	defer permits.Release()
	e.metrics.permitWaited(time.Since(permitStart))

	breaker := e.breakers.Get(e.breakerKey(node, resolved))

	var output interface{}
	var metadata map[string]interface{}
	attempt := 0
	for {
		if ctx.Err() != nil {
			err = types.CancelledError("node %s cancelled", node.Name)
			break
		}

		var done func(bool)
		done, err = breaker.Allow()
		if err == nil {
			output, metadata, err = e.runAttempt(ctx, run, node, resolved)
			done(err == nil)
		} else {
			e.metrics.breakerDenied(breaker.Name())
		}

		if err == nil {
			break
		}
		if !node.RetryConfig.ShouldRetry(err, attempt) {
			break
		}

		reason := string(types.ClassifyError(err))
		e.metrics.nodeRetried(kind, reason)
		e.emitter.Emit(emit.Event{
			WorkflowID: run.workflow.ID.String(),
			NodeID:     node.ID.String(),
			NodeName:   node.Name,
			Msg:        "node_retry",
			Meta:       map[string]interface{}{"attempt": attempt, "reason": reason},
			Timestamp:  time.Now().UTC(),
		})

		if delay := node.RetryConfig.CalculateDelay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				err = types.CancelledError("node %s cancelled during backoff", node.Name)
			}
			if types.IsKind(err, types.ErrCancelled) {
				break
			}
		}
		attempt++
	}

	duration := time.Since(started)
	e.metrics.nodeFinished(kind, duration, err == nil)

	if err != nil {
		result.Error = err.Error()
		return result.WithDuration(duration).WithRetryCount(attempt).MarkCompleted()
	}

	success := types.SuccessResult(node.ID, output)
	success.StartedAt = started.UTC()
	for key, value := range metadata {
		success.Metadata[key] = value
	}
	return success.WithDuration(duration).WithRetryCount(attempt).MarkCompleted()
}

// runAttempt executes one attempt with the node's timeout applied.
func (e *Executor) runAttempt(ctx context.Context, run *runState, node *graph.Node, resolved graph.NodeType) (interface{}, map[string]interface{}, error) {
	timeout := node.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, metadata, err := e.executeNode(ctx, run, node, resolved)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		// Synthetic timeout error feeds the retry classifier.
		return nil, nil, types.NewError(types.ErrNetwork, "node %s timed out after %v", node.Name, timeout)
	}
	return output, metadata, err
}

// resolveNodeTemplates resolves the template-bearing string fields of
// a node kind against the current context.
func (e *Executor) resolveNodeTemplates(node *graph.Node, wfCtx *types.WorkflowContext) graph.NodeType {
	resolved := node.NodeType
	switch resolved.Kind {
	case graph.NodeKindAgent:
		resolved.PromptTemplate = ResolveTemplateVariables(resolved.PromptTemplate, wfCtx)
	case graph.NodeKindCondition:
		resolved.Expression = ResolveTemplateVariables(resolved.Expression, wfCtx)
	case graph.NodeKindTransform:
		resolved.Transformation = ResolveTemplateVariables(resolved.Transformation, wfCtx)
	case graph.NodeKindHTTPRequest:
		resolved.URL = ResolveTemplateVariables(resolved.URL, wfCtx)
		if len(resolved.Headers) > 0 {
			headers := make(map[string]string, len(resolved.Headers))
			for key, value := range resolved.Headers {
				headers[key] = ResolveTemplateVariables(value, wfCtx)
			}
			resolved.Headers = headers
		}
	case graph.NodeKindDocumentLoader:
		resolved.SourcePath = ResolveTemplateVariables(resolved.SourcePath, wfCtx)
	}
	return resolved
}

// breakerKey derives the external-dependency identity a node's breaker
// guards: (provider, model) for agents, host for HTTP nodes, the node
// kind otherwise.
func (e *Executor) breakerKey(node *graph.Node, resolved graph.NodeType) string {
	switch node.NodeType.Kind {
	case graph.NodeKindAgent:
		if a, ok := e.lookupAgent(node.NodeType.AgentID); ok {
			return "agent:" + a.Client().Provider().Name() + "/" + a.Client().Provider().Model()
		}
		return "agent:" + node.NodeType.AgentID.String()
	case graph.NodeKindHTTPRequest:
		if parsed, err := url.Parse(resolved.URL); err == nil && parsed.Host != "" {
			return "http:" + parsed.Host
		}
		return "http:" + resolved.URL
	default:
		return "node:" + string(node.NodeType.Kind)
	}
}

// shouldExecute decides whether a node runs, given the outcomes of its
// upstream nodes: a node executes when it has no incoming edges or at
// least one live incoming edge.
//
// An incoming edge is live when its source executed and:
//   - error-handling edges require the source to have failed,
//   - other edges require the source to have succeeded,
//   - conditional edges additionally require their condition to hold
//     for the source's boolean outcome.
func (e *Executor) shouldExecute(run *runState, node *graph.Node) bool {
	incoming := run.workflow.Graph.EdgesTo(node.ID)
	if len(incoming) == 0 {
		return true
	}

	for _, ref := range incoming {
		if run.skipped[ref.From] {
			continue
		}
		sourceResult, executed := run.results[ref.From]
		if !executed {
			continue
		}

		if ref.Edge.Kind == graph.EdgeKindErrorHandling {
			if !sourceResult.Success {
				return true
			}
			continue
		}
		if !sourceResult.Success {
			continue
		}
		if ref.Edge.Kind == graph.EdgeKindConditional {
			if e.conditionalEdgeTaken(run, ref) {
				return true
			}
			continue
		}
		return true
	}
	return false
}

// conditionalEdgeTaken evaluates a conditional edge against its source
// condition node's outcome. "true"/"false" (and empty) conditions
// select the branch directly; anything else evaluates as an expression
// with the outcome bound to "result".
func (e *Executor) conditionalEdgeTaken(run *runState, ref graph.EdgeRef) bool {
	outcome, isCondition := run.condResults[ref.From]

	condition := strings.TrimSpace(ref.Edge.Condition)
	switch condition {
	case "", "true":
		if isCondition {
			return outcome
		}
		return true
	case "false":
		if isCondition {
			return !outcome
		}
		return false
	}

	env := expressionEnv(run.ctx)
	env["result"] = outcome
	value, err := evaluateExpression(condition, env)
	if err != nil {
		return false
	}
	return isTruthy(value)
}

// hasErrorHandlingEdge reports whether a failing node offers a
// compensating path.
func (e *Executor) hasErrorHandlingEdge(wf *Workflow, nodeID types.NodeID) bool {
	for _, ref := range wf.Graph.EdgesFrom(nodeID) {
		if ref.Edge.Kind == graph.EdgeKindErrorHandling {
			return true
		}
	}
	return false
}

func (e *Executor) finishStats(run *runState, started time.Time, maxConcurrent int, startStats types.ConcurrencyStats) {
	stats := types.WorkflowExecutionStats{
		MaxConcurrentNodes: maxConcurrent,
		TotalExecutionTime: time.Since(started),
	}

	var totalDuration time.Duration
	for _, result := range run.results {
		stats.TotalNodes++
		totalDuration += result.Duration
		if result.Success {
			stats.SuccessfulNodes++
		} else {
			stats.FailedNodes++
		}
	}
	stats.SkippedNodes = len(run.skipped)
	if stats.TotalNodes > 0 {
		stats.AvgExecutionTime = totalDuration / time.Duration(stats.TotalNodes)
	}

	endStats := e.concurrency.Stats()
	stats.SemaphoreAcquisitions = endStats.TotalAcquired - startStats.TotalAcquired
	stats.AvgSemaphoreWait = endStats.AvgWaitTime

	run.ctx.SetStats(stats)
}

func (e *Executor) emitWorkflowEnd(wf *Workflow, msg string) {
	e.emitter.Emit(emit.Event{
		WorkflowID: wf.ID.String(),
		Msg:        msg,
		Timestamp:  time.Now().UTC(),
	})
}

// admissionKind maps a node kind to its concurrency admission class.
func admissionKind(node *graph.Node) string {
	switch node.NodeType.Kind {
	case graph.NodeKindAgent:
		return "agent"
	case graph.NodeKindHTTPRequest:
		return "http"
	case graph.NodeKindTransform, graph.NodeKindCondition:
		return "transform"
	case graph.NodeKindDocumentLoader:
		return "document"
	default:
		return string(node.NodeType.Kind)
	}
}

// createDependencyBatches layers the graph so every node in batch k
// has all of its dependencies in batches < k. An empty ready set with
// work remaining means the graph is cyclic or invalid.
func createDependencyBatches(g *graph.Graph) ([][]*graph.Node, error) {
	completed := make(map[types.NodeID]struct{}, g.NodeCount())
	remaining := make(map[types.NodeID]struct{}, g.NodeCount())
	for _, node := range g.Nodes() {
		remaining[node.ID] = struct{}{}
	}

	var batches [][]*graph.Node
	for len(remaining) > 0 {
		var ready []*graph.Node
		// Iterate in insertion order for stable batch composition.
		for _, node := range g.Nodes() {
			if _, pending := remaining[node.ID]; !pending {
				continue
			}
			allDone := true
			for _, dep := range g.GetDependencies(node.ID) {
				if _, done := completed[dep]; !done {
					allDone = false
					break
				}
			}
			if allDone {
				ready = append(ready, node)
			}
		}

		if len(ready) == 0 {
			return nil, types.WorkflowExecutionError("no dependency-ready nodes found; graph may be cyclic or invalid")
		}

		batches = append(batches, ready)
		for _, node := range ready {
			completed[node.ID] = struct{}{}
			delete(remaining, node.ID)
		}
	}
	return batches, nil
}
