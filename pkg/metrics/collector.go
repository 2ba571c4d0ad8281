// Package metrics exposes workflow and LLM activity as prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "agent_graph"

// Collector records graph and LLM metrics. It implements graph.Observer.
type Collector struct {
	graphRunsTotal    *prometheus.CounterVec
	graphRunSteps     *prometheus.HistogramVec
	nodeVisitsTotal   *prometheus.CounterVec
	nodeFailuresTotal *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the metrics with reg. A nil reg uses the default
// prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		graphRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_runs_total",
				Help:      "Total number of graph runs by outcome",
			},
			[]string{"graph", "status"},
		),
		graphRunSteps: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_run_steps",
				Help:      "Number of node executions per graph run",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"graph"},
		),
		nodeVisitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node executions",
			},
			[]string{"graph", "node"},
		),
		nodeFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_failures_total",
				Help:      "Total number of failed node executions",
			},
			[]string{"graph", "node"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Node execution duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"graph", "node"},
		),
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM requests",
			},
			[]string{"provider", "status"},
		),
		llmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
	}
}

// OnGraphStart implements graph.Observer
func (c *Collector) OnGraphStart(ctx context.Context, graphName string) {}

// OnNodeStart implements graph.Observer
func (c *Collector) OnNodeStart(ctx context.Context, graphName, node string, step int) {
	c.nodeVisitsTotal.WithLabelValues(graphName, node).Inc()
}

// OnNodeEnd implements graph.Observer
func (c *Collector) OnNodeEnd(ctx context.Context, graphName, node string, step int, err error, duration time.Duration) {
	c.nodeDuration.WithLabelValues(graphName, node).Observe(duration.Seconds())
	if err != nil {
		c.nodeFailuresTotal.WithLabelValues(graphName, node).Inc()
	}
}

// OnGraphEnd implements graph.Observer
func (c *Collector) OnGraphEnd(ctx context.Context, graphName string, steps int, err error) {
	c.graphRunsTotal.WithLabelValues(graphName, status(err)).Inc()
	c.graphRunSteps.WithLabelValues(graphName).Observe(float64(steps))
}

// InstrumentLLM wraps llm so every call is counted and timed
func (c *Collector) InstrumentLLM(llm interfaces.LLM) interfaces.LLM {
	return &instrumentedLLM{llm: llm, collector: c}
}

type instrumentedLLM struct {
	llm       interfaces.LLM
	collector *Collector
}

func (l *instrumentedLLM) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	start := time.Now()
	response, err := l.llm.Generate(ctx, prompt, options...)

	provider := l.llm.Name()
	l.collector.llmRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	l.collector.llmRequestsTotal.WithLabelValues(provider, status(err)).Inc()
	return response, err
}

func (l *instrumentedLLM) Name() string {
	return l.llm.Name()
}

// GetModel reports the wrapped model so tracing middleware stacked on top
// can still label spans with it
func (l *instrumentedLLM) GetModel() string {
	if modelProvider, ok := l.llm.(interface{ GetModel() string }); ok {
		return modelProvider.GetModel()
	}
	return ""
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ graph.Observer = (*Collector)(nil)
