package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for workflow execution.
//
// Exposed series (namespaced "graphbit_"):
//   - inflight_nodes (gauge): nodes currently executing
//   - node_duration_ms (histogram): per-node wall-clock time, labeled
//     by node_type and status
//   - node_retries_total (counter): retry attempts, labeled by
//     node_type and reason
//   - breaker_denials_total (counter): circuit-breaker rejections,
//     labeled by dependency
//   - permit_wait_ms (histogram): time spent waiting for concurrency
//     permits
//   - workflows_total (counter): finished runs, labeled by status
type Metrics struct {
	inflightNodes  prometheus.Gauge
	nodeDuration   *prometheus.HistogramVec
	nodeRetries    *prometheus.CounterVec
	breakerDenials *prometheus.CounterVec
	permitWait     prometheus.Histogram
	workflowsTotal *prometheus.CounterVec
}

// NewMetrics registers the metric set with the given registerer.
// Use prometheus.NewRegistry() in tests to avoid global collisions.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	buckets := []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000}

	return &Metrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "graphbit_inflight_nodes",
			Help: "Number of workflow nodes currently executing.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphbit_node_duration_ms",
			Help:    "Node execution duration in milliseconds.",
			Buckets: buckets,
		}, []string{"node_type", "status"}),
		nodeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphbit_node_retries_total",
			Help: "Total node retry attempts.",
		}, []string{"node_type", "reason"}),
		breakerDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphbit_breaker_denials_total",
			Help: "Total requests rejected by open circuit breakers.",
		}, []string{"dependency"}),
		permitWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphbit_permit_wait_ms",
			Help:    "Time spent waiting for concurrency permits in milliseconds.",
			Buckets: buckets,
		}),
		workflowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "graphbit_workflows_total",
			Help: "Completed workflow runs by terminal status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) nodeStarted() {
	if m != nil {
		m.inflightNodes.Inc()
	}
}

func (m *Metrics) nodeFinished(nodeType string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.inflightNodes.Dec()
	status := "success"
	if !success {
		status = "error"
	}
	m.nodeDuration.WithLabelValues(nodeType, status).Observe(float64(duration.Milliseconds()))
}

func (m *Metrics) nodeRetried(nodeType, reason string) {
	if m != nil {
		m.nodeRetries.WithLabelValues(nodeType, reason).Inc()
	}
}

func (m *Metrics) breakerDenied(dependency string) {
	if m != nil {
		m.breakerDenials.WithLabelValues(dependency).Inc()
	}
}

func (m *Metrics) permitWaited(duration time.Duration) {
	if m != nil {
		m.permitWait.Observe(float64(duration.Milliseconds()))
	}
}

func (m *Metrics) workflowFinished(status string) {
	if m != nil {
		m.workflowsTotal.WithLabelValues(status).Inc()
	}
}
