package llm

import (
	"fmt"
	"sync"
	"time"
)

// ModelPricing defines input and output token costs for a model, in
// USD per million tokens.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Static pricing for common models. Prices change; override per model
// with SetCustomPricing when they do.
var defaultModelPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo":              {InputPer1M: 0.50, OutputPer1M: 1.50},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
	"deepseek-chat":              {InputPer1M: 0.14, OutputPer1M: 0.28},
}

// CallRecord captures one LLM invocation for cost attribution.
type CallRecord struct {
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
	NodeID       string
	Timestamp    time.Time
}

// CostTracker accumulates token usage and USD cost across a workflow
// run. All methods are safe for concurrent use.
type CostTracker struct {
	mu       sync.Mutex
	runID    string
	currency string
	enabled  bool
	pricing  map[string]ModelPricing
	calls    []CallRecord

	totalInputTokens  int64
	totalOutputTokens int64
	totalCost         float64
}

// NewCostTracker creates a tracker for the given run. Currency is
// informational; the static pricing table is USD.
func NewCostTracker(runID, currency string) *CostTracker {
	pricing := make(map[string]ModelPricing, len(defaultModelPricing))
	for model, p := range defaultModelPricing {
		pricing[model] = p
	}
	return &CostTracker{
		runID:    runID,
		currency: currency,
		enabled:  true,
		pricing:  pricing,
	}
}

// RecordCall accounts for one completion. Unknown models record tokens
// with zero cost.
func (t *CostTracker) RecordCall(model string, usage TokenUsage, nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}

	var cost float64
	if pricing, ok := t.pricing[model]; ok {
		cost = float64(usage.PromptTokens)/1e6*pricing.InputPer1M +
			float64(usage.CompletionTokens)/1e6*pricing.OutputPer1M
	}

	t.calls = append(t.calls, CallRecord{
		Model:        model,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		Cost:         cost,
		NodeID:       nodeID,
		Timestamp:    time.Now().UTC(),
	})
	t.totalInputTokens += int64(usage.PromptTokens)
	t.totalOutputTokens += int64(usage.CompletionTokens)
	t.totalCost += cost
}

// TotalCost returns the accumulated cost.
func (t *CostTracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCost
}

// CostByModel returns the accumulated cost per model.
func (t *CostTracker) CostByModel() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	byModel := make(map[string]float64, 4)
	for _, call := range t.calls {
		byModel[call.Model] += call.Cost
	}
	return byModel
}

// TokenUsage returns the accumulated input and output token counts.
func (t *CostTracker) TokenUsage() (inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalInputTokens, t.totalOutputTokens
}

// CallHistory returns a copy of the recorded calls.
func (t *CostTracker) CallHistory() []CallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	history := make([]CallRecord, len(t.calls))
	copy(history, t.calls)
	return history
}

// SetCustomPricing overrides the pricing for a model.
func (t *CostTracker) SetCustomPricing(model string, inputPer1M, outputPer1M float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pricing[model] = ModelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

// Disable stops recording.
func (t *CostTracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable resumes recording.
func (t *CostTracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = true
}

// Reset clears all recorded calls and totals.
func (t *CostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
	t.totalInputTokens = 0
	t.totalOutputTokens = 0
	t.totalCost = 0
}

// String summarizes the tracker state.
func (t *CostTracker) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("run=%s calls=%d input_tokens=%d output_tokens=%d cost=%.6f %s",
		t.runID, len(t.calls), t.totalInputTokens, t.totalOutputTokens, t.totalCost, t.currency)
}
