package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Runnable is a compiled graph. It holds no per-run state, so one Runnable
// may be invoked concurrently with different states provided the node
// handlers are themselves safe for concurrent use.
type Runnable[S State[S, P], P any] struct {
	name             string
	nodes            map[string]Handler[S, P]
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	errorEdges       map[string]string
	entryPoint       string
	endNode          string
	recorder         ErrorRecorder[S]
	cfg              config
}

// Name returns the graph name
func (r *Runnable[S, P]) Name() string {
	return r.name
}

// Invoke walks the graph from the entry point. The returned state is valid
// even when err is non-nil and reflects every patch merged before the failure.
func (r *Runnable[S, P]) Invoke(ctx context.Context, initial S) (S, error) {
	if r.entryPoint == "" {
		return initial, ErrNoEntryPoint
	}

	ctx, span := r.cfg.tracer.Start(ctx, "graph.invoke", trace.WithAttributes(
		attribute.String("graph.name", r.name),
		attribute.String("graph.entry_point", r.entryPoint),
	))
	defer span.End()

	r.cfg.observer.OnGraphStart(ctx, r.name)
	r.cfg.logger.Debug(ctx, "Starting graph", map[string]interface{}{
		"graph": r.name,
		"entry": r.entryPoint,
	})

	state, steps, err := r.walk(ctx, initial.Clone())

	span.SetAttributes(attribute.Int("graph.steps", steps))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.cfg.logger.Error(ctx, "Graph execution failed", map[string]interface{}{
			"graph": r.name,
			"steps": steps,
			"error": err.Error(),
		})
	} else {
		r.cfg.logger.Debug(ctx, "Graph execution completed", map[string]interface{}{
			"graph": r.name,
			"steps": steps,
		})
	}
	r.cfg.observer.OnGraphEnd(ctx, r.name, steps, err)

	return state, err
}

func (r *Runnable[S, P]) walk(ctx context.Context, state S) (S, int, error) {
	steps := 0
	current := r.entryPoint

	for current != "" && current != r.endNode {
		if err := ctx.Err(); err != nil {
			return state, steps, err
		}

		next, nodeErr := r.execute(ctx, current, state, steps)
		if nodeErr != nil && !isNodeError(nodeErr) {
			return state, steps, nodeErr
		}
		steps++

		if nodeErr != nil {
			state = r.record(state, current, nodeErr)
			if target, ok := r.errorEdges[current]; ok {
				current = target
				continue
			}
			switch r.cfg.errorPolicy.Mode {
			case ErrorModeHalt:
				return state, steps, nodeErr
			case ErrorModeRoute:
				current = r.cfg.errorPolicy.Target
				continue
			}
		} else {
			state = next
		}

		current = r.next(ctx, current, state)
	}

	if current == "" {
		return state, steps, nil
	}

	// current == endNode
	if err := ctx.Err(); err != nil {
		return state, steps, err
	}
	next, nodeErr := r.execute(ctx, current, state, steps)
	if nodeErr != nil && !isNodeError(nodeErr) {
		return state, steps, nodeErr
	}
	steps++
	if nodeErr != nil {
		state = r.record(state, current, nodeErr)
		if r.cfg.errorPolicy.Mode == ErrorModeHalt {
			return state, steps, nodeErr
		}
		return state, steps, nil
	}
	return next, steps, nil
}

// execute runs one node and returns the merged state. Handler failures are
// returned as *NodeError; any other error is a configuration problem.
func (r *Runnable[S, P]) execute(ctx context.Context, node string, state S, step int) (S, error) {
	handler, ok := r.nodes[node]
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}
	if r.cfg.maxSteps > 0 && step >= r.cfg.maxSteps {
		return state, fmt.Errorf("%w: limit %d reached before node %s", ErrMaxStepsExceeded, r.cfg.maxSteps, node)
	}

	ctx, span := r.cfg.tracer.Start(ctx, "graph.node "+node, trace.WithAttributes(
		attribute.String("graph.name", r.name),
		attribute.String("graph.node", node),
		attribute.Int("graph.step", step),
	))
	defer span.End()

	r.cfg.observer.OnNodeStart(ctx, r.name, node, step)
	start := time.Now()

	patch, err := handler.Run(ctx, state)

	duration := time.Since(start)
	r.cfg.observer.OnNodeEnd(ctx, r.name, node, step, err, duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.cfg.logger.Error(ctx, "Node execution failed", map[string]interface{}{
			"graph":       r.name,
			"node":        node,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return state, &NodeError{Node: node, Err: err}
	}

	r.cfg.logger.Debug(ctx, "Node execution completed", map[string]interface{}{
		"graph":       r.name,
		"node":        node,
		"duration_ms": duration.Milliseconds(),
	})
	return state.Merge(patch), nil
}

// next resolves the transition out of node
func (r *Runnable[S, P]) next(ctx context.Context, node string, state S) string {
	if edge, ok := r.conditionalEdges[node]; ok {
		target := edge.condition(ctx, state)
		if _, known := r.nodes[target]; known {
			return target
		}
		if len(edge.defaults) > 0 {
			r.cfg.logger.Debug(ctx, "Condition returned unknown node, using default", map[string]interface{}{
				"graph":    r.name,
				"node":     node,
				"decision": target,
				"default":  edge.defaults[0],
			})
			return edge.defaults[0]
		}
		return ""
	}

	if targets := r.edges[node]; len(targets) > 0 {
		return targets[0]
	}
	return ""
}

func (r *Runnable[S, P]) record(state S, node string, err error) S {
	if r.recorder == nil {
		return state
	}
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		err = nodeErr.Err
	}
	return r.recorder(state, node, err)
}

func isNodeError(err error) bool {
	var nodeErr *NodeError
	return errors.As(err, &nodeErr)
}
