package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
)

// DynamicWorkflowGraph lets a language model pick the next agent after every
// step. Agents report back to the router node, which either names another
// agent or "complete"; "complete" renders the report and ends the run.
// A failed routing call is recorded in the state and the next hop follows
// the previous decision, or the start agent when there is none.
type DynamicWorkflowGraph struct {
	cfg        *config
	llm        interfaces.LLM
	agents     map[string]interfaces.Agent
	routes     []Route
	startAgent string
	errs       []error
}

// NewDynamicWorkflowGraph creates a router driven workflow using llm for
// routing decisions
func NewDynamicWorkflowGraph(llm interfaces.LLM, options ...Option) *DynamicWorkflowGraph {
	return &DynamicWorkflowGraph{
		cfg:    newConfig("dynamic_workflow", options),
		llm:    llm,
		agents: make(map[string]interfaces.Agent),
	}
}

// AddAgent registers an agent the router may choose. The description is
// shown to the model. The first agent added runs first unless SetStartAgent
// says otherwise.
func (w *DynamicWorkflowGraph) AddAgent(agentID string, agent interfaces.Agent, description string) *DynamicWorkflowGraph {
	switch {
	case agent == nil:
		w.errs = append(w.errs, fmt.Errorf("%w: %s", ErrNilAgent, agentID))
		return w
	case agentID == RouterNodeName || agentID == CompleteNodeName:
		w.errs = append(w.errs, fmt.Errorf("%w: %s is reserved", graph.ErrInvalidNode, agentID))
		return w
	}
	if _, exists := w.agents[agentID]; exists {
		w.errs = append(w.errs, fmt.Errorf("%w: %s", graph.ErrDuplicateNode, agentID))
		return w
	}

	w.agents[agentID] = agent
	w.routes = append(w.routes, Route{Name: agentID, Description: description})
	if w.startAgent == "" {
		w.startAgent = agentID
	}
	return w
}

// SetStartAgent sets the agent that handles the request first
func (w *DynamicWorkflowGraph) SetStartAgent(agentID string) *DynamicWorkflowGraph {
	w.startAgent = agentID
	return w
}

// Compile builds the router graph and validates it
func (w *DynamicWorkflowGraph) Compile() (*CompiledWorkflow, error) {
	errs := append([]error(nil), w.errs...)
	if w.llm == nil {
		errs = append(errs, errors.New("router llm is required"))
	}
	if len(w.routes) == 0 {
		errs = append(errs, errors.New("at least one agent is required"))
	}
	if w.startAgent != "" && w.agents[w.startAgent] == nil {
		errs = append(errs, fmt.Errorf("%w: start agent %s", graph.ErrNodeNotFound, w.startAgent))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid workflow %s: %w", w.cfg.name, errors.Join(errs...))
	}

	router := NewRouter(w.llm, w.routes,
		WithDefaultRoute(w.startAgent),
		WithRouterLogger(w.cfg.logger),
	)

	g := graph.NewStateGraph[State, Patch](w.cfg.name)
	g.SetErrorRecorder(RecordError)

	add := func(name string, handler graph.Handler[State, Patch]) {
		if err := g.AddNode(name, handler); err != nil {
			errs = append(errs, err)
		}
	}
	add(RouterNodeName, router)
	add(CompleteNodeName, &formatterNode{title: w.cfg.reportTitle})
	for _, route := range w.routes {
		add(route.Name, &agentNode{agentID: route.Name, agent: w.agents[route.Name]})
		g.AddEdge(route.Name, RouterNodeName)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid workflow %s: %w", w.cfg.name, errors.Join(errs...))
	}

	g.SetEntryPoint(RouterNodeName)
	g.SetEndNode(CompleteNodeName)
	g.AddConditionalEdges(RouterNodeName, router.Condition, CompleteNodeName)
	if w.cfg.completeOnRouterError {
		g.AddErrorEdge(RouterNodeName, CompleteNodeName)
	}

	runnable, err := g.Compile(w.cfg.compileOptions()...)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", w.cfg.name, err)
	}
	return &CompiledWorkflow{runnable: runnable}, nil
}

// Run compiles the workflow and runs it once with input
func (w *DynamicWorkflowGraph) Run(ctx context.Context, input string) (State, error) {
	compiled, err := w.Compile()
	if err != nil {
		return NewState(input), err
	}
	return compiled.Run(ctx, input)
}
