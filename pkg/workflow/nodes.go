package workflow

import (
	"context"
	"strconv"
	"strings"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

const (
	// OutputNodeName is the synthetic node that renders the final report
	OutputNodeName = "output_formatter"

	summaryPreviewLength    = 100
	transcriptPreviewLength = 200
)

// agentNode runs one agent against the workflow input
type agentNode struct {
	agentID string
	agent   interfaces.Agent
}

func (n *agentNode) Run(ctx context.Context, state State) (Patch, error) {
	result, err := n.agent.Run(ctx, interfaces.AgentInput{
		Input: state.Input,
		RunID: logging.RunIDFromContext(ctx),
	})
	if err != nil {
		return Patch{}, &AgentError{AgentID: n.agentID, Err: err}
	}

	var output string
	if result != nil {
		output = result.Output
	}
	return withStep(state, Step{
		AgentID: n.agentID,
		Input:   state.Input,
		Output:  output,
	}), nil
}

// formatterNode renders the steps of a run into FinalOutput
type formatterNode struct {
	title string
}

func (n *formatterNode) Run(ctx context.Context, state State) (Patch, error) {
	return Patch{FinalOutput: stringPtr(RenderReport(n.title, state.IntermediateSteps))}, nil
}

// RenderReport renders a Markdown report: the last step's output followed by
// a preview of every step in execution order. An empty step list yields a
// placeholder report.
func RenderReport(title string, steps []Step) string {
	if title == "" {
		title = "Workflow Results"
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(steps) == 0 {
		b.WriteString("No agent steps were executed.\n")
		return b.String()
	}

	b.WriteString("## Final Output\n\n")
	b.WriteString(steps[len(steps)-1].Output)
	b.WriteString("\n\n## Process Summary\n\n")
	for i, step := range steps {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". **")
		b.WriteString(step.AgentID)
		b.WriteString("**: ")
		b.WriteString(truncate(step.Output, summaryPreviewLength))
		b.WriteString("\n")
	}
	return b.String()
}

// truncate keeps the first n runes of s and marks the cut with an ellipsis
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
