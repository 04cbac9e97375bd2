package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects execution metrics for production monitoring.
// All metrics are namespaced "flowmaestro_".
//
// Exposed series:
//   - inflight_nodes (gauge): nodes currently executing
//   - ready_queue_depth (gauge): ready nodes observed at the last round
//   - node_duration_seconds (histogram, labels node_type/status): handler
//     execution duration
//   - node_results_total (counter, label status): terminal node outcomes
//   - loop_iterations_total (counter): loop body iterations executed
//   - tokens_used_total (counter): LLM token usage reported by handlers
//
// Expose the registry via promhttp for scraping:
//
//	promReg := prometheus.NewRegistry()
//	metrics := flow.NewPrometheusMetrics(promReg)
//	engine := flow.NewEngine(handlerRegistry, flow.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
//
// All methods are safe on a nil receiver, so instrumentation points need no
// nil checks.
type PrometheusMetrics struct {
	inflightNodes   prometheus.Gauge
	readyQueueDepth prometheus.Gauge
	nodeDuration    *prometheus.HistogramVec
	nodeResults     *prometheus.CounterVec
	loopIterations  prometheus.Counter
	tokensUsed      prometheus.Counter
}

// NewPrometheusMetrics creates and registers all execution metrics with the
// provided registry. Use prometheus.DefaultRegisterer for the global
// registry, or a private registry in tests to avoid duplicate registration.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowmaestro",
			Name:      "inflight_nodes",
			Help:      "Number of nodes currently executing.",
		}),
		readyQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowmaestro",
			Name:      "ready_queue_depth",
			Help:      "Number of ready nodes observed at the last scheduling round.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowmaestro",
			Name:      "node_duration_seconds",
			Help:      "Handler execution duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 60},
		}, []string{"node_type", "status"}),
		nodeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowmaestro",
			Name:      "node_results_total",
			Help:      "Terminal node outcomes by status.",
		}, []string{"status"}),
		loopIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowmaestro",
			Name:      "loop_iterations_total",
			Help:      "Loop body iterations executed.",
		}),
		tokensUsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowmaestro",
			Name:      "tokens_used_total",
			Help:      "LLM tokens consumed as reported by handlers.",
		}),
	}
}

// NodeStarted records a node entering execution.
func (m *PrometheusMetrics) NodeStarted() {
	if m == nil {
		return
	}
	m.inflightNodes.Inc()
}

// NodeFinished records a node leaving execution with a terminal status.
func (m *PrometheusMetrics) NodeFinished(nodeType NodeType, status Status, duration time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.inflightNodes.Dec()
	m.nodeDuration.WithLabelValues(string(nodeType), string(status)).Observe(duration.Seconds())
	m.nodeResults.WithLabelValues(string(status)).Inc()
	if tokens > 0 {
		m.tokensUsed.Add(float64(tokens))
	}
}

// NodeSkipped records a node resolved to skipped without executing.
func (m *PrometheusMetrics) NodeSkipped() {
	if m == nil {
		return
	}
	m.nodeResults.WithLabelValues(string(StatusSkipped)).Inc()
}

// ObserveQueueDepth records how many nodes were ready at a scheduling round.
func (m *PrometheusMetrics) ObserveQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.readyQueueDepth.Set(float64(depth))
}

// LoopIteration records one executed loop body iteration.
func (m *PrometheusMetrics) LoopIteration() {
	if m == nil {
		return
	}
	m.loopIterations.Inc()
}
