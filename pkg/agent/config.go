package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
)

// LLMProviderYAML selects the model behind an agent
type LLMProviderYAML struct {
	Provider    string                 `yaml:"provider"`
	Model       string                 `yaml:"model,omitempty"`
	Temperature *float64               `yaml:"temperature,omitempty"`
	Config      map[string]interface{} `yaml:"config,omitempty"`
}

// AgentConfig is one agent definition in an agents YAML file
type AgentConfig struct {
	Role      string           `yaml:"role"`
	Goal      string           `yaml:"goal"`
	Backstory string           `yaml:"backstory"`
	LLM       *LLMProviderYAML `yaml:"llm,omitempty"`
}

// AgentConfigs maps agent IDs to their definitions
type AgentConfigs map[string]AgentConfig

// Description summarises the agent for routers
func (c AgentConfig) Description() string {
	role := strings.TrimSpace(c.Role)
	goal := strings.TrimSpace(c.Goal)
	switch {
	case role == "":
		return goal
	case goal == "":
		return role
	default:
		return role + ". " + goal
	}
}

// Names returns the agent IDs in lexical order
func (c AgentConfigs) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadAgentConfigsFromFile reads agent definitions from a YAML file.
// Environment references such as ${OPENAI_MODEL} are expanded first.
func LoadAgentConfigsFromFile(path string) (AgentConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config file %s: %w", path, err)
	}
	return ParseAgentConfigs(data)
}

// ParseAgentConfigs decodes agent definitions from YAML
func ParseAgentConfigs(data []byte) (AgentConfigs, error) {
	var configs AgentConfigs
	if err := yaml.Unmarshal([]byte(config.ExpandEnv(string(data))), &configs); err != nil {
		return nil, fmt.Errorf("failed to parse agent configs: %w", err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no agents defined")
	}
	for name, cfg := range configs {
		if strings.TrimSpace(cfg.Role) == "" {
			return nil, fmt.Errorf("agent %s: role is required", name)
		}
	}
	return configs, nil
}

// FormatSystemPromptFromConfig renders the role, goal and backstory into a
// system prompt, replacing {name} placeholders from variables
func FormatSystemPromptFromConfig(cfg AgentConfig, variables map[string]string) string {
	role := substitute(cfg.Role, variables)
	goal := substitute(cfg.Goal, variables)
	backstory := substitute(cfg.Backstory, variables)

	var b strings.Builder
	fmt.Fprintf(&b, "# Role\n%s\n", strings.TrimSpace(role))
	if goal = strings.TrimSpace(goal); goal != "" {
		fmt.Fprintf(&b, "\n# Goal\n%s\n", goal)
	}
	if backstory = strings.TrimSpace(backstory); backstory != "" {
		fmt.Fprintf(&b, "\n# Backstory\n%s\n", backstory)
	}
	return b.String()
}

func substitute(s string, variables map[string]string) string {
	for key, value := range variables {
		s = strings.ReplaceAll(s, "{"+key+"}", value)
	}
	return s
}

// MergeAgentConfig fills the empty fields of primary from base. The llm
// block is taken from base as a whole when primary has none.
func MergeAgentConfig(primary, base *AgentConfig) *AgentConfig {
	if primary == nil {
		return base
	}
	if base == nil {
		return primary
	}

	merged := *primary
	if merged.Role == "" {
		merged.Role = base.Role
	}
	if merged.Goal == "" {
		merged.Goal = base.Goal
	}
	if merged.Backstory == "" {
		merged.Backstory = base.Backstory
	}
	if merged.LLM == nil {
		merged.LLM = base.LLM
	}
	return &merged
}

// NewAgentFromConfig creates the agent agentName from configs. Unless the
// options provide an LLM, one is built from the agent's llm block.
func NewAgentFromConfig(agentName string, configs AgentConfigs, variables map[string]string, options ...Option) (*Agent, error) {
	cfg, exists := configs[agentName]
	if !exists {
		return nil, fmt.Errorf("agent configuration for %s not found", agentName)
	}

	all := append([]Option{WithAgentConfig(cfg, variables), WithName(agentName)}, options...)
	a := newAgent(all...)
	if a.llm == nil && cfg.LLM != nil {
		llm, err := NewLLMFromConfig(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", agentName, err)
		}
		a.llm = llm
	}
	if a.llm == nil {
		return nil, fmt.Errorf("agent %s: %w", agentName, ErrLLMRequired)
	}
	return a, nil
}
