package account

import (
	"fmt"
	"sync"
)

// Registry holds the participants of one simulation in a thread-safe manner.
// Registration order is kept and defines the roster order used by the round
// driver when it submits orders.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Participant
	roster []*Participant
}

// NewRegistry creates a registry holding the given participants.
// Returns an error on a nil participant or duplicate id.
func NewRegistry(participants ...*Participant) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Participant)}
	for _, p := range participants {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a participant at the end of the roster
func (r *Registry) Register(p *Participant) error {
	if p == nil {
		return fmt.Errorf("cannot register nil participant")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID()]; exists {
		return fmt.Errorf("participant %s already registered", p.ID())
	}
	r.byID[p.ID()] = p
	r.roster = append(r.roster, p)
	return nil
}

// Participant resolves a participant by id. It satisfies the lookup the
// matching engine takes.
func (r *Registry) Participant(id string) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// List returns the participants in roster order
func (r *Registry) List() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Participant, len(r.roster))
	copy(out, r.roster)
	return out
}

// Count returns number of registered participants
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roster)
}

// Summaries returns the state summary of every participant in roster order.
func (r *Registry) Summaries() []StateSummary {
	list := r.List()
	out := make([]StateSummary, len(list))
	for i, p := range list {
		out[i] = p.StateSummary()
	}
	return out
}

// ValidateAll checks the invariants of every participant
func (r *Registry) ValidateAll() error {
	for _, p := range r.List() {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
