// Package graph implements a small state-graph executor: named nodes patch a
// shared state value and unconditional or conditional edges decide which node
// runs next. It knows nothing about agents.
package graph

import (
	"context"
	"fmt"
)

// State is implemented by values threaded through a graph.
// Clone and Merge must return new values and leave the receiver untouched.
type State[S any, P any] interface {
	Clone() S
	Merge(patch P) S
}

// Handler runs a node: it reads the current state and returns a patch
type Handler[S any, P any] interface {
	Run(ctx context.Context, state S) (P, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc[S any, P any] func(ctx context.Context, state S) (P, error)

// Run implements Handler
func (f HandlerFunc[S, P]) Run(ctx context.Context, state S) (P, error) {
	return f(ctx, state)
}

// ConditionFunc picks the next node name from the current state
type ConditionFunc[S any] func(ctx context.Context, state S) string

// ErrorRecorder folds a node failure into state
type ErrorRecorder[S any] func(state S, node string, err error) S

type conditionalEdge[S any] struct {
	condition ConditionFunc[S]
	defaults  []string
}

// StateGraph holds the node registry and transition tables of a graph
type StateGraph[S State[S, P], P any] struct {
	name             string
	nodes            map[string]Handler[S, P]
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	errorEdges       map[string]string
	entryPoint       string
	endNode          string
	recorder         ErrorRecorder[S]
}

// NewStateGraph creates an empty graph
func NewStateGraph[S State[S, P], P any](name string) *StateGraph[S, P] {
	return &StateGraph[S, P]{
		name:             name,
		nodes:            make(map[string]Handler[S, P]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]conditionalEdge[S]),
		errorEdges:       make(map[string]string),
	}
}

// Name returns the graph name
func (g *StateGraph[S, P]) Name() string {
	return g.name
}

// AddNode registers a handler under a unique name
func (g *StateGraph[S, P]) AddNode(name string, handler Handler[S, P]) error {
	if name == "" || handler == nil {
		return fmt.Errorf("%w: name and handler are required", ErrInvalidNode)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	g.nodes[name] = handler
	g.order = append(g.order, name)
	return nil
}

// HasNode reports whether name is registered
func (g *StateGraph[S, P]) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Nodes returns node names in registration order
func (g *StateGraph[S, P]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// AddEdge registers an unconditional transition. Only the first edge added
// from a node is followed.
func (g *StateGraph[S, P]) AddEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
}

// AddConditionalEdges registers a decision point on from. When condition
// names a registered node the walk jumps there, otherwise it falls back to
// defaults[0], otherwise it stops. A later call for the same node replaces
// the earlier one.
func (g *StateGraph[S, P]) AddConditionalEdges(from string, condition ConditionFunc[S], defaults ...string) {
	g.conditionalEdges[from] = conditionalEdge[S]{
		condition: condition,
		defaults:  append([]string(nil), defaults...),
	}
}

// AddErrorEdge sends the walk to "to" whenever the handler of "from" fails
func (g *StateGraph[S, P]) AddErrorEdge(from, to string) {
	g.errorEdges[from] = to
}

// SetEntryPoint marks the node where execution starts
func (g *StateGraph[S, P]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetEndNode marks the terminal node. Reaching it runs its handler once and
// ends the walk.
func (g *StateGraph[S, P]) SetEndNode(name string) {
	g.endNode = name
}

// SetErrorRecorder sets how handler failures are written into state
func (g *StateGraph[S, P]) SetErrorRecorder(recorder ErrorRecorder[S]) {
	g.recorder = recorder
}

// Compile validates the graph and returns a runner over a snapshot of it.
// Later changes to the builder do not affect the returned Runnable.
func (g *StateGraph[S, P]) Compile(options ...Option) (*Runnable[S, P], error) {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	if err := g.validate(cfg); err != nil {
		return nil, err
	}

	r := &Runnable[S, P]{
		name:             g.name,
		nodes:            make(map[string]Handler[S, P], len(g.nodes)),
		edges:            make(map[string][]string, len(g.edges)),
		conditionalEdges: make(map[string]conditionalEdge[S], len(g.conditionalEdges)),
		errorEdges:       make(map[string]string, len(g.errorEdges)),
		entryPoint:       g.entryPoint,
		endNode:          g.endNode,
		recorder:         g.recorder,
		cfg:              cfg,
	}
	for name, handler := range g.nodes {
		r.nodes[name] = handler
	}
	for from, targets := range g.edges {
		r.edges[from] = append([]string(nil), targets...)
	}
	for from, edge := range g.conditionalEdges {
		r.conditionalEdges[from] = conditionalEdge[S]{
			condition: edge.condition,
			defaults:  append([]string(nil), edge.defaults...),
		}
	}
	for from, to := range g.errorEdges {
		r.errorEdges[from] = to
	}
	return r, nil
}

func (g *StateGraph[S, P]) validate(cfg config) error {
	if g.entryPoint == "" {
		return ErrNoEntryPoint
	}

	check := func(kind, name string) error {
		if _, ok := g.nodes[name]; !ok {
			return fmt.Errorf("%w: %s %q", ErrNodeNotFound, kind, name)
		}
		return nil
	}

	if err := check("entry point", g.entryPoint); err != nil {
		return err
	}
	if g.endNode != "" {
		if err := check("end node", g.endNode); err != nil {
			return err
		}
	}
	for from, targets := range g.edges {
		if err := check("edge source", from); err != nil {
			return err
		}
		for _, to := range targets {
			if err := check("edge target", to); err != nil {
				return err
			}
		}
	}
	for from, edge := range g.conditionalEdges {
		if edge.condition == nil {
			return fmt.Errorf("%w: conditional edge on %q has no condition", ErrInvalidNode, from)
		}
		if err := check("conditional edge source", from); err != nil {
			return err
		}
		for _, to := range edge.defaults {
			if err := check("conditional edge default", to); err != nil {
				return err
			}
		}
	}
	for from, to := range g.errorEdges {
		if err := check("error edge source", from); err != nil {
			return err
		}
		if err := check("error edge target", to); err != nil {
			return err
		}
	}
	if cfg.errorPolicy.Mode == ErrorModeRoute {
		if err := check("error policy target", cfg.errorPolicy.Target); err != nil {
			return err
		}
	}
	return nil
}
