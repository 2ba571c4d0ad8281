package interfaces

import (
	"context"
)

// Agent represents an agent that can perform tasks.
// Workflow graphs populate AgentInput.Input and AgentInput.RunID; the
// remaining fields are for callers running agents outside of a graph.
type Agent interface {
	// Run executes the agent with the given input
	Run(ctx context.Context, input AgentInput) (*AgentResult, error)
}

// AgentInput is the request passed to an agent
type AgentInput struct {
	Input         string                 `json:"input"`
	Context       map[string]interface{} `json:"context,omitempty"`
	ToolInput     map[string]interface{} `json:"tool_input,omitempty"`
	RunID         string                 `json:"run_id,omitempty"`
	SessionID     string                 `json:"session_id,omitempty"`
	PersistMemory bool                   `json:"persist_memory,omitempty"`
}

// AgentResult is the response returned by an agent
type AgentResult struct {
	Output    string        `json:"output"`
	Logs      []interface{} `json:"logs,omitempty"`
	ToolCalls []ToolCall    `json:"tool_calls,omitempty"`
	MemoryID  string        `json:"memory_id,omitempty"`
}

// ToolCall represents a tool call made by an agent
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result,omitempty"`
}

// AgentFunc adapts a plain function to the Agent interface
type AgentFunc func(ctx context.Context, input AgentInput) (*AgentResult, error)

// Run implements Agent
func (f AgentFunc) Run(ctx context.Context, input AgentInput) (*AgentResult, error) {
	return f(ctx, input)
}
