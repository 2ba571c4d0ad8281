package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

const (
	// RouterNodeName is the node name of the router in dynamic workflows
	RouterNodeName = "router"

	// CompleteNodeName is the routing decision that ends a dynamic workflow
	CompleteNodeName = "complete"
)

const routerSystemMessage = "You route requests between specialised agents. " +
	"Answer with exactly one agent name from the list you are given and nothing else."

// Route is an agent the router may choose
type Route struct {
	Name        string
	Description string
}

// Router asks a language model which agent should run next
type Router struct {
	llm          interfaces.LLM
	routes       []Route
	defaultRoute string
	logger       logging.Logger
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithDefaultRoute sets the node used while no routing decision exists
func WithDefaultRoute(name string) RouterOption {
	return func(r *Router) {
		r.defaultRoute = name
	}
}

// WithRouterLogger sets the router logger
func WithRouterLogger(logger logging.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a router choosing between routes. The first route is
// the default unless WithDefaultRoute says otherwise.
func NewRouter(llm interfaces.LLM, routes []Route, options ...RouterOption) *Router {
	r := &Router{
		llm:    llm,
		routes: append([]Route(nil), routes...),
		logger: logging.New(logging.WithComponent("router")),
	}
	if len(routes) > 0 {
		r.defaultRoute = routes[0].Name
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run is the router node handler. Before any agent has run it passes the
// state through so the first hop follows the default route.
func (r *Router) Run(ctx context.Context, state State) (Patch, error) {
	if len(state.IntermediateSteps) == 0 && state.Error == "" {
		return Patch{}, nil
	}

	response, err := r.llm.Generate(ctx, r.Prompt(state),
		interfaces.WithSystemMessage(routerSystemMessage),
		interfaces.WithTemperature(0),
	)
	if err != nil {
		return Patch{}, &RouterError{Err: err}
	}

	decision := normalizeDecision(response)
	r.logger.Debug(ctx, "Router decision", map[string]interface{}{
		"decision": decision,
		"steps":    len(state.IntermediateSteps),
	})
	return Patch{RoutingDecision: stringPtr(decision)}, nil
}

// Condition reads the routing decision, falling back to the default route
// before the first decision. Decisions naming no known route end the run.
func (r *Router) Condition(ctx context.Context, state State) string {
	decision := state.RoutingDecision
	if decision == "" {
		return r.defaultRoute
	}
	for _, route := range r.routes {
		if route.Name == decision {
			return decision
		}
	}
	return CompleteNodeName
}

// Routes returns the routes the router chooses between
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Prompt renders the routing request for state
func (r *Router) Prompt(state State) string {
	var b strings.Builder

	b.WriteString("Decide which agent should handle the next step of this request.\n\nAvailable agents:\n")
	for _, route := range r.routes {
		if route.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", route.Name, route.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", route.Name)
		}
	}
	fmt.Fprintf(&b, "- %s: the request is fully handled and no more agents are needed\n", CompleteNodeName)

	b.WriteString("\nRequest:\n")
	b.WriteString(state.Input)
	b.WriteString("\n\nSteps so far:\n")
	if len(state.IntermediateSteps) == 0 {
		b.WriteString("(none)\n")
	}
	for i, step := range state.IntermediateSteps {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, step.AgentID, truncate(step.Output, transcriptPreviewLength))
	}
	if state.Error != "" {
		b.WriteString("\nLast error:\n")
		b.WriteString(state.Error)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nRespond with only the agent name, or %q if no further work is needed.", CompleteNodeName)
	return b.String()
}

// normalizeDecision lower-cases the model answer and strips whitespace,
// quotes and trailing punctuation
func normalizeDecision(response string) string {
	decision := strings.ToLower(strings.TrimSpace(response))
	return strings.Trim(decision, "\"'`.!")
}
