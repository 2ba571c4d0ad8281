package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
)

// MarketingWorkflowGraph chains agents into a workflow graph.
// Builder methods return the receiver so calls can be chained; the first
// error they hit is reported by Compile.
type MarketingWorkflowGraph struct {
	cfg   *config
	graph *graph.StateGraph[State, Patch]
	entry string
	errs  []error
}

// NewMarketingWorkflowGraph creates an empty workflow graph
func NewMarketingWorkflowGraph(options ...Option) *MarketingWorkflowGraph {
	cfg := newConfig("marketing_workflow", options)
	g := graph.NewStateGraph[State, Patch](cfg.name)
	g.SetErrorRecorder(RecordError)
	return &MarketingWorkflowGraph{cfg: cfg, graph: g}
}

// AddAgent registers agent as a node. The node is named agentID unless
// nodeName is given. The first agent added becomes the entry point.
func (w *MarketingWorkflowGraph) AddAgent(agentID string, agent interfaces.Agent, nodeName ...string) *MarketingWorkflowGraph {
	if agent == nil {
		w.errs = append(w.errs, fmt.Errorf("%w: %s", ErrNilAgent, agentID))
		return w
	}

	name := agentID
	if len(nodeName) > 0 && nodeName[0] != "" {
		name = nodeName[0]
	}

	if err := w.graph.AddNode(name, &agentNode{agentID: agentID, agent: agent}); err != nil {
		w.errs = append(w.errs, err)
		return w
	}
	if w.entry == "" {
		w.entry = name
		w.graph.SetEntryPoint(name)
	}
	return w
}

// SetEntryPoint overrides the node where the workflow starts
func (w *MarketingWorkflowGraph) SetEntryPoint(name string) *MarketingWorkflowGraph {
	w.entry = name
	w.graph.SetEntryPoint(name)
	return w
}

// AddEdge adds an unconditional transition
func (w *MarketingWorkflowGraph) AddEdge(from, to string) *MarketingWorkflowGraph {
	w.graph.AddEdge(from, to)
	return w
}

// AddConditionalEdge adds a transition decided by condition. When condition
// returns an unknown name the walk goes to defaultNode, or stops if none.
func (w *MarketingWorkflowGraph) AddConditionalEdge(from string, condition graph.ConditionFunc[State], defaultNode ...string) *MarketingWorkflowGraph {
	var defaults []string
	if len(defaultNode) > 0 && defaultNode[0] != "" {
		defaults = []string{defaultNode[0]}
	}
	w.graph.AddConditionalEdges(from, condition, defaults...)
	return w
}

// AddErrorEdge sends the walk to "to" when the node "from" fails
func (w *MarketingWorkflowGraph) AddErrorEdge(from, to string) *MarketingWorkflowGraph {
	w.graph.AddErrorEdge(from, to)
	return w
}

// SetOutputNode routes name into the report formatter, which ends the run
func (w *MarketingWorkflowGraph) SetOutputNode(name string) *MarketingWorkflowGraph {
	if !w.graph.HasNode(OutputNodeName) {
		if err := w.graph.AddNode(OutputNodeName, &formatterNode{title: w.cfg.reportTitle}); err != nil {
			w.errs = append(w.errs, err)
			return w
		}
	}
	w.graph.AddEdge(name, OutputNodeName)
	w.graph.SetEndNode(OutputNodeName)
	return w
}

// Compile validates the graph and returns a runnable workflow
func (w *MarketingWorkflowGraph) Compile() (*CompiledWorkflow, error) {
	if len(w.errs) > 0 {
		return nil, fmt.Errorf("invalid workflow %s: %w", w.cfg.name, errors.Join(w.errs...))
	}
	runnable, err := w.graph.Compile(w.cfg.compileOptions()...)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", w.cfg.name, err)
	}
	return &CompiledWorkflow{runnable: runnable}, nil
}

// Run compiles the workflow and runs it once with input
func (w *MarketingWorkflowGraph) Run(ctx context.Context, input string) (State, error) {
	compiled, err := w.Compile()
	if err != nil {
		return NewState(input), err
	}
	return compiled.Run(ctx, input)
}

// CompiledWorkflow is a validated workflow ready to run
type CompiledWorkflow struct {
	runnable *graph.Runnable[State, Patch]
}

// Name returns the workflow name
func (c *CompiledWorkflow) Name() string {
	return c.runnable.Name()
}

// Invoke runs the workflow from an explicit initial state
func (c *CompiledWorkflow) Invoke(ctx context.Context, state State) (State, error) {
	return c.runnable.Invoke(ctx, state)
}

// Run runs the workflow with a fresh state built from input
func (c *CompiledWorkflow) Run(ctx context.Context, input string) (State, error) {
	return c.runnable.Invoke(ctx, NewState(input))
}
