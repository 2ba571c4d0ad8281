package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Ingenimax/agent-graph-go/pkg/interfaces"
)

// Registry manages a collection of agents
type Registry struct {
	mu     sync.RWMutex
	agents map[string]interfaces.Agent
}

// NewRegistry creates a new agent registry
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]interfaces.Agent),
	}
}

// NewRegistryFromConfigs builds every agent in configs. The options apply to
// each agent, so WithLLM shares one model between all of them.
func NewRegistryFromConfigs(configs AgentConfigs, variables map[string]string, options ...Option) (*Registry, error) {
	r := NewRegistry()
	for _, name := range configs.Names() {
		a, err := NewAgentFromConfig(name, configs, variables, options...)
		if err != nil {
			return nil, err
		}
		r.Register(name, a)
	}
	return r, nil
}

// Register registers an agent with the given ID, replacing any previous one
func (r *Registry) Register(id string, agent interfaces.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = agent
}

// Get retrieves an agent by ID
func (r *Registry) Get(id string) (interfaces.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, exists := r.agents[id]
	return agent, exists
}

// MustGet retrieves an agent by ID or reports it missing
func (r *Registry) MustGet(id string) (interfaces.Agent, error) {
	agent, exists := r.Get(id)
	if !exists {
		return nil, fmt.Errorf("agent %s is not registered", id)
	}
	return agent, nil
}

// Unregister removes an agent from the registry
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// List returns all registered agent IDs in lexical order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
