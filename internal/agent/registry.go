package agent

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownKind is returned when registering an agent under a stage kind
// the pipeline does not know how to project or merge.
var ErrUnknownKind = errors.New("unknown stage kind")

// Registry maps stage kinds to agent instances. It is safe for concurrent
// use and may be mutated while workflows are running; a running pipeline
// resolves each stage at the moment it is reached.
type Registry struct {
	mu     sync.RWMutex
	agents map[Kind]Agent
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[Kind]Agent)}
}

// Register installs ag under kind, replacing any agent already there.
func (r *Registry) Register(kind Kind, ag Agent) error {
	if !kind.Valid() {
		return fmt.Errorf("registry: %w %q", ErrUnknownKind, kind)
	}
	if ag == nil {
		return fmt.Errorf("registry: nil agent for %q", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[kind] = ag
	return nil
}

// Remove uninstalls the agent for kind. It reports whether one was present.
func (r *Registry) Remove(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.agents[kind]
	delete(r.agents, kind)
	return ok
}

// Get returns the agent registered for kind.
func (r *Registry) Get(kind Kind) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ag, ok := r.agents[kind]
	return ag, ok
}

// Kinds returns the registered kinds in canonical pipeline order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var kinds []Kind
	for _, k := range Kinds() {
		if _, ok := r.agents[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Cards returns the card of every registered agent.
func (r *Registry) Cards() map[Kind]Card {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := make(map[Kind]Card, len(r.agents))
	for k, ag := range r.agents {
		cards[k] = ag.Card()
	}
	return cards
}
