package workflow

// Step records one executed agent node
type Step struct {
	AgentID string `json:"agent_id"`
	Input   string `json:"input"`
	Output  string `json:"output"`
}

// State is the record threaded through every node of a workflow graph.
// Nodes never modify it in place; they return a Patch that the graph merges
// into a fresh copy.
type State struct {
	// Input is the original request; it never changes during a run
	Input string `json:"input"`
	// IntermediateSteps is append-only and ordered by execution
	IntermediateSteps []Step `json:"intermediate_steps"`
	// FinalOutput is written once, by the output node
	FinalOutput string `json:"final_output,omitempty"`
	// Error holds the most recent node failure
	Error string `json:"error,omitempty"`
	// RoutingDecision is the router's choice for the next node
	RoutingDecision string `json:"routing_decision,omitempty"`
}

// Patch is a partial State. Nil fields are absent and leave State untouched.
type Patch struct {
	IntermediateSteps []Step
	FinalOutput       *string
	Error             *string
	RoutingDecision   *string
}

// NewState creates the initial state for a run
func NewState(input string) State {
	return State{Input: input}
}

// Clone returns a copy that shares no memory with s
func (s State) Clone() State {
	out := s
	if s.IntermediateSteps != nil {
		out.IntermediateSteps = append([]Step(nil), s.IntermediateSteps...)
	}
	return out
}

// Merge returns a copy of s with the fields present in p replaced
func (s State) Merge(p Patch) State {
	out := s.Clone()
	if p.IntermediateSteps != nil {
		out.IntermediateSteps = append([]Step(nil), p.IntermediateSteps...)
	}
	if p.FinalOutput != nil {
		out.FinalOutput = *p.FinalOutput
	}
	if p.Error != nil {
		out.Error = *p.Error
	}
	if p.RoutingDecision != nil {
		out.RoutingDecision = *p.RoutingDecision
	}
	return out
}

// LastStep returns the most recent step, if any
func (s State) LastStep() (Step, bool) {
	if len(s.IntermediateSteps) == 0 {
		return Step{}, false
	}
	return s.IntermediateSteps[len(s.IntermediateSteps)-1], true
}

// withStep builds the patch that appends step to the steps of s
func withStep(s State, step Step) Patch {
	steps := make([]Step, 0, len(s.IntermediateSteps)+1)
	steps = append(steps, s.IntermediateSteps...)
	steps = append(steps, step)
	return Patch{IntermediateSteps: steps}
}

func stringPtr(s string) *string {
	return &s
}
