package workflow

import (
	"net/http"
	"time"

	"github.com/InfinitiBit/graphbit-go/docloader"
	"github.com/InfinitiBit/graphbit-go/emit"
	"github.com/InfinitiBit/graphbit-go/llm"
	"github.com/InfinitiBit/graphbit-go/memory"
	"github.com/InfinitiBit/graphbit-go/types"
)

// Option is a functional option for configuring an Executor.
//
//	executor := workflow.NewExecutor(
//	    workflow.WithGlobalConcurrency(32),
//	    workflow.WithKindConcurrency("agent", 4),
//	    workflow.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	)
type Option func(*executorConfig)

// executorConfig collects options before the executor is assembled.
type executorConfig struct {
	globalMax      int64
	perKindLimits  map[string]int64
	breakerConfig  types.CircuitBreakerConfig
	emitter        emit.Emitter
	metrics        *Metrics
	costTracker    *llm.CostTracker
	docLoader      *docloader.Loader
	memoryManager  *memory.Manager
	httpClient     *http.Client
	defaultTimeout time.Duration
}

func defaultExecutorConfig() *executorConfig {
	return &executorConfig{
		globalMax: 64,
		perKindLimits: map[string]int64{
			"agent":     8,
			"http":      16,
			"transform": 32,
		},
		breakerConfig:  types.DefaultCircuitBreakerConfig(),
		emitter:        emit.NewNullEmitter(),
		defaultTimeout: 5 * time.Minute,
	}
}

// WithGlobalConcurrency sets the global permit pool size.
func WithGlobalConcurrency(max int64) Option {
	return func(c *executorConfig) { c.globalMax = max }
}

// WithKindConcurrency sets the permit pool size for one node kind
// ("agent", "http", "transform", ...).
func WithKindConcurrency(kind string, max int64) Option {
	return func(c *executorConfig) { c.perKindLimits[kind] = max }
}

// WithCircuitBreakerConfig sets the shared breaker configuration.
func WithCircuitBreakerConfig(config types.CircuitBreakerConfig) Option {
	return func(c *executorConfig) { c.breakerConfig = config }
}

// WithEmitter sets the execution event sink.
func WithEmitter(emitter emit.Emitter) Option {
	return func(c *executorConfig) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics(metrics *Metrics) Option {
	return func(c *executorConfig) { c.metrics = metrics }
}

// WithCostTracker enables LLM token/cost accounting for agent nodes.
func WithCostTracker(tracker *llm.CostTracker) Option {
	return func(c *executorConfig) { c.costTracker = tracker }
}

// WithDocumentLoader sets the document source used by DocumentLoader
// nodes.
func WithDocumentLoader(loader *docloader.Loader) Option {
	return func(c *executorConfig) { c.docLoader = loader }
}

// WithMemoryManager attaches the memory subsystem, exposed to custom
// functions and agents.
func WithMemoryManager(manager *memory.Manager) Option {
	return func(c *executorConfig) { c.memoryManager = manager }
}

// WithHTTPClient overrides the pooled client used by HttpRequest
// nodes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *executorConfig) { c.httpClient = client }
}

// WithDefaultTimeout sets the per-attempt timeout for nodes that do
// not declare their own. Zero disables the default timeout.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *executorConfig) { c.defaultTimeout = timeout }
}
