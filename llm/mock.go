package llm

import (
	"context"
	"sync"
)

// MockProvider is a scripted Provider for tests.
//
// Each Complete call returns the next configured response; when the
// script is exhausted the last response repeats. Err, when set, is
// returned instead. All invocations are recorded in Calls.
//
//	mock := &llm.MockProvider{
//	    ModelName: "mock-model",
//	    Responses: []llm.Response{{Content: "first"}, {Content: "second"}},
//	}
type MockProvider struct {
	BaseProvider

	// ProviderName reported by Name (defaults to "mock").
	ProviderName string
	// ModelName reported by Model (defaults to "mock-model").
	ModelName string
	// Responses is the scripted response sequence.
	Responses []Response
	// Errs is the scripted error sequence, aligned with call order. A
	// nil entry means the call succeeds with the next response.
	Errs []error
	// Err, if set, is returned by every call (overrides Errs).
	Err error
	// CompleteFn, if set, handles calls entirely.
	CompleteFn func(ctx context.Context, request Request) (Response, error)

	// Calls records every request received.
	Calls []Request

	mu        sync.Mutex
	callIndex int
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// SupportsFunctionCalling reports true; the mock passes tool calls
// through from its scripted responses.
func (m *MockProvider) SupportsFunctionCalling() bool { return true }

// Complete implements Provider. The call is recorded before any error
// handling so tests can assert on inputs.
func (m *MockProvider) Complete(ctx context.Context, request Request) (Response, error) {
	if ctx.Err() != nil {
		return Response{}, ctx.Err()
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, request)
	index := m.callIndex
	m.callIndex++
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, request)
	}
	if m.Err != nil {
		return Response{}, m.Err
	}
	if index < len(m.Errs) && m.Errs[index] != nil {
		return Response{}, m.Errs[index]
	}

	if len(m.Responses) == 0 {
		resp := Response{Model: m.Model(), FinishReason: FinishStop}
		resp.Usage = EstimateUsage(request.TotalChars(), 0)
		return resp, nil
	}
	if index >= len(m.Responses) {
		index = len(m.Responses) - 1
	}

	resp := m.Responses[index]
	if resp.Model == "" {
		resp.Model = m.Model()
	}
	if resp.FinishReason == "" {
		if resp.HasToolCalls() {
			resp.FinishReason = FinishToolCalls
		} else {
			resp.FinishReason = FinishStop
		}
	}
	if resp.Usage.IsEmpty() {
		resp.Usage = EstimateUsage(request.TotalChars(), len(resp.Content))
	}
	return resp, nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, if any.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
