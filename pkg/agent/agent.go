package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
)

// ErrLLMRequired is returned when an agent is built without a model
var ErrLLMRequired = errors.New("LLM is required")

// Agent is an interfaces.Agent answering every input with one LLM call
type Agent struct {
	llm          interfaces.LLM
	name         string
	description  string
	systemPrompt string
	llmConfig    *interfaces.LLMConfig
	maxTokens    int
	logger       logging.Logger
}

// Option represents an option for configuring an agent
type Option func(*Agent)

// WithLLM sets the LLM for the agent
func WithLLM(llm interfaces.LLM) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithName sets the name for the agent
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithDescription sets what the agent does, as shown to routers
func WithDescription(description string) Option {
	return func(a *Agent) {
		a.description = description
	}
}

// WithSystemPrompt sets the system prompt for the agent
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithTemperature sets the sampling temperature sent with every call
func WithTemperature(temperature float64) Option {
	return func(a *Agent) {
		if a.llmConfig == nil {
			a.llmConfig = &interfaces.LLMConfig{}
		}
		a.llmConfig.Temperature = temperature
	}
}

// WithLLMConfig sets the sampling parameters sent with every call
func WithLLMConfig(config interfaces.LLMConfig) Option {
	return func(a *Agent) {
		a.llmConfig = &config
	}
}

// WithMaxTokens caps the length of responses
func WithMaxTokens(maxTokens int) Option {
	return func(a *Agent) {
		a.maxTokens = maxTokens
	}
}

// WithLogger sets the agent logger
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithAgentConfig sets the system prompt and description from a YAML config
func WithAgentConfig(config AgentConfig, variables map[string]string) Option {
	return func(a *Agent) {
		a.systemPrompt = FormatSystemPromptFromConfig(config, variables)
		if a.description == "" {
			a.description = config.Description()
		}
		if config.LLM != nil && config.LLM.Temperature != nil {
			WithTemperature(*config.LLM.Temperature)(a)
		}
	}
}

// NewAgent creates a new agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	a := newAgent(options...)
	if a.llm == nil {
		return nil, ErrLLMRequired
	}
	return a, nil
}

func newAgent(options ...Option) *Agent {
	a := &Agent{
		logger: logging.New(logging.WithComponent("agent")),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Name returns the agent name
func (a *Agent) Name() string {
	return a.name
}

// Description returns what the agent does
func (a *Agent) Description() string {
	return a.description
}

// SystemPrompt returns the system prompt sent with every call
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Run implements interfaces.Agent
func (a *Agent) Run(ctx context.Context, input interfaces.AgentInput) (*interfaces.AgentResult, error) {
	if input.RunID != "" {
		ctx = logging.ContextWithRunID(ctx, input.RunID)
	}

	var options []interfaces.GenerateOption
	if a.systemPrompt != "" {
		options = append(options, interfaces.WithSystemMessage(a.systemPrompt))
	}
	if a.llmConfig != nil {
		options = append(options, interfaces.WithTemperature(a.llmConfig.Temperature))
		if a.llmConfig.TopP > 0 {
			options = append(options, interfaces.WithTopP(a.llmConfig.TopP))
		}
		if len(a.llmConfig.StopSequences) > 0 {
			options = append(options, interfaces.WithStopSequences(a.llmConfig.StopSequences))
		}
	}
	if a.maxTokens > 0 {
		options = append(options, interfaces.WithMaxTokens(a.maxTokens))
	}

	a.logger.Debug(ctx, "Running agent", map[string]interface{}{
		"agent": a.name,
		"llm":   a.llm.Name(),
	})

	output, err := a.llm.Generate(ctx, buildPrompt(input), options...)
	if err != nil {
		a.logger.Error(ctx, "Agent generation failed", map[string]interface{}{
			"agent": a.name,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	return &interfaces.AgentResult{Output: output}, nil
}

// buildPrompt appends the optional context entries to the input, sorted by key
func buildPrompt(input interfaces.AgentInput) string {
	if len(input.Context) == 0 {
		return input.Input
	}

	keys := make([]string, 0, len(input.Context))
	for key := range input.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(input.Input)
	b.WriteString("\n\nContext:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", key, input.Context[key])
	}
	return b.String()
}

var _ interfaces.Agent = (*Agent)(nil)
