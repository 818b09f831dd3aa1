package agents

import "sort"

// Registry maps stage identifiers to stage implementations. It is built
// by the service's startup routine and injected where needed; writes only
// happen during startup, so reads need no locking afterwards.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds a stage under its own name. Re-registering the same name
// replaces the previous entry, so repeated startup wiring is idempotent.
func (r *Registry) Register(agent Agent) {
	r.agents[agent.Name()] = agent
}

// Get looks up a stage by identifier.
func (r *Registry) Get(name string) (Agent, error) {
	agent, ok := r.agents[name]
	if !ok {
		return nil, &NotRegisteredError{Name: name, Available: r.Available()}
	}
	return agent, nil
}

// Available lists registered stage identifiers, sorted.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
