package workflow

import (
	"errors"
	"fmt"

	"github.com/Ingenimax/agent-graph-go/pkg/graph"
)

// ErrNilAgent is returned when AddAgent is called without an agent
var ErrNilAgent = errors.New("agent is required")

// AgentError is returned by an agent node whose agent failed
type AgentError struct {
	AgentID string
	Err     error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.AgentID, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// RouterError is returned by the router node when the model call fails
type RouterError struct {
	Err error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router failed: %v", e.Err)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// RecordError is the graph.ErrorRecorder used by workflow graphs. It writes
// a human readable message into State.Error and leaves the steps untouched.
func RecordError(state State, node string, err error) State {
	var agentErr *AgentError
	var routerErr *RouterError

	msg := fmt.Sprintf("Error in node %s: %v", node, err)
	switch {
	case errors.As(err, &agentErr):
		msg = fmt.Sprintf("Error in agent %s: %v", agentErr.AgentID, agentErr.Err)
	case errors.As(err, &routerErr):
		msg = fmt.Sprintf("Error in router: %v", routerErr.Err)
	}
	return state.Merge(Patch{Error: stringPtr(msg)})
}

var _ graph.ErrorRecorder[State] = RecordError
