package graph

import (
	"context"
	"time"
)

// Observer receives callbacks from a running graph for logging and metrics.
// Callbacks run inline with the walk and should return quickly.
type Observer interface {
	// OnGraphStart is called once per Invoke before the entry node runs
	OnGraphStart(ctx context.Context, graphName string)

	// OnNodeStart is called before a node handler runs
	OnNodeStart(ctx context.Context, graphName, node string, step int)

	// OnNodeEnd is called after a node handler returns, err is the handler error if any
	OnNodeEnd(ctx context.Context, graphName, node string, step int, err error, duration time.Duration)

	// OnGraphEnd is called once per Invoke with the error Invoke returns
	OnGraphEnd(ctx context.Context, graphName string, steps int, err error)
}

// NoopObserver is an Observer that does nothing
type NoopObserver struct{}

func (NoopObserver) OnGraphStart(ctx context.Context, graphName string) {}
func (NoopObserver) OnNodeStart(ctx context.Context, graphName, node string, step int) {
}
func (NoopObserver) OnNodeEnd(ctx context.Context, graphName, node string, step int, err error, duration time.Duration) {
}
func (NoopObserver) OnGraphEnd(ctx context.Context, graphName string, steps int, err error) {}

// CompositeObserver fans out events to multiple observers
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each non-nil observer in obs
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnGraphStart(ctx context.Context, graphName string) {
	for _, o := range c.observers {
		o.OnGraphStart(ctx, graphName)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, graphName, node string, step int) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, graphName, node, step)
	}
}

func (c *CompositeObserver) OnNodeEnd(ctx context.Context, graphName, node string, step int, err error, duration time.Duration) {
	for _, o := range c.observers {
		o.OnNodeEnd(ctx, graphName, node, step, err, duration)
	}
}

func (c *CompositeObserver) OnGraphEnd(ctx context.Context, graphName string, steps int, err error) {
	for _, o := range c.observers {
		o.OnGraphEnd(ctx, graphName, steps, err)
	}
}
