package workflow

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

type config struct {
	name         string
	reportTitle  string
	logger       logging.Logger
	graphOptions []graph.Option

	completeOnRouterError bool
}

func newConfig(defaultName string, options []Option) *config {
	cfg := &config{
		name:        defaultName,
		reportTitle: "Workflow Results",
		logger:      logging.New(logging.WithComponent("workflow")),
	}
	for _, option := range options {
		option(cfg)
	}
	return cfg
}

func (c *config) compileOptions() []graph.Option {
	return append([]graph.Option{graph.WithLogger(c.logger)}, c.graphOptions...)
}

// Option configures a workflow graph
type Option func(*config)

// WithName sets the workflow name used in logs, spans and run records
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithReportTitle sets the heading of the rendered report
func WithReportTitle(title string) Option {
	return func(c *config) {
		if title != "" {
			c.reportTitle = title
		}
	}
}

// WithLogger sets the logger used by the workflow and its graph
func WithLogger(logger logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorPolicy sets what happens after a node fails.
// The default continues along the failed node's normal edges.
func WithErrorPolicy(policy graph.ErrorPolicy) Option {
	return func(c *config) {
		c.graphOptions = append(c.graphOptions, graph.WithErrorPolicy(policy))
	}
}

// WithMaxSteps bounds the number of node executions per run
func WithMaxSteps(n int) Option {
	return func(c *config) {
		c.graphOptions = append(c.graphOptions, graph.WithMaxSteps(n))
	}
}

// WithObserver registers an observer for graph and node events
func WithObserver(observer graph.Observer) Option {
	return func(c *config) {
		c.graphOptions = append(c.graphOptions, graph.WithObserver(observer))
	}
}

// WithTracer sets the tracer used for run and node spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.graphOptions = append(c.graphOptions, graph.WithTracer(tracer))
	}
}

// WithCompleteOnRouterError makes a failed routing call in a dynamic workflow
// end the run with the report instead of following the last decision
func WithCompleteOnRouterError() Option {
	return func(c *config) {
		c.completeOnRouterError = true
	}
}
