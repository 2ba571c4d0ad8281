package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntryPoint is returned when a graph is compiled or invoked without an entry point
	ErrNoEntryPoint = errors.New("graph has no entry point")

	// ErrNodeNotFound is returned when a node name does not resolve to a registered handler
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when a node name is registered twice
	ErrDuplicateNode = errors.New("node already registered")

	// ErrInvalidNode is returned for empty names or nil handlers
	ErrInvalidNode = errors.New("invalid node")

	// ErrMaxStepsExceeded is returned when a walk executes more handlers than the step budget allows
	ErrMaxStepsExceeded = errors.New("maximum steps exceeded")
)

// NodeError wraps a handler failure with the node that produced it
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
