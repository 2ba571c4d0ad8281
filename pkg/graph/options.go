package graph

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

// DefaultMaxSteps bounds the number of handler executions per Invoke
const DefaultMaxSteps = 25

const tracerName = "github.com/Ingenimax/agent-graph-go/pkg/graph"

// ErrorMode selects what a walk does after a node handler fails
type ErrorMode string

const (
	// ErrorModeContinue records the failure into state and follows the node's normal edges
	ErrorModeContinue ErrorMode = "continue"
	// ErrorModeHalt records the failure into state and stops the walk with a *NodeError
	ErrorModeHalt ErrorMode = "halt"
	// ErrorModeRoute records the failure into state and jumps to ErrorPolicy.Target
	ErrorModeRoute ErrorMode = "route"
)

// ErrorPolicy is the graph-wide reaction to node failures. Error edges
// registered with AddErrorEdge take precedence over it.
type ErrorPolicy struct {
	Mode   ErrorMode
	Target string
}

// ContinueOnError keeps walking along normal edges after a failure
func ContinueOnError() ErrorPolicy {
	return ErrorPolicy{Mode: ErrorModeContinue}
}

// HaltOnError stops the walk at the first failure
func HaltOnError() ErrorPolicy {
	return ErrorPolicy{Mode: ErrorModeHalt}
}

// RouteOnError sends the walk to node after any failure
func RouteOnError(node string) ErrorPolicy {
	return ErrorPolicy{Mode: ErrorModeRoute, Target: node}
}

type config struct {
	maxSteps    int
	errorPolicy ErrorPolicy
	observer    Observer
	tracer      trace.Tracer
	logger      logging.Logger
}

func defaultConfig() config {
	return config{
		maxSteps:    DefaultMaxSteps,
		errorPolicy: ContinueOnError(),
		observer:    NoopObserver{},
		tracer:      otel.Tracer(tracerName),
		logger:      logging.New(logging.WithComponent("graph")),
	}
}

// Option configures a compiled graph
type Option func(*config)

// WithMaxSteps sets the step budget; n <= 0 disables the limit
func WithMaxSteps(n int) Option {
	return func(c *config) {
		c.maxSteps = n
	}
}

// WithErrorPolicy sets the graph-wide error policy
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(c *config) {
		c.errorPolicy = policy
	}
}

// WithObserver sets the observer notified of graph and node events
func WithObserver(observer Observer) Option {
	return func(c *config) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithTracer sets the tracer used for invoke and node spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
