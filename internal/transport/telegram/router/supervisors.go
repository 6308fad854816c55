package router

import (
	"sort"
	"sync"
)

// SupervisorRegistry tracks the supervisors of long-lived subsystems
// (adapter poller, notifier workers, router dispatch) under stable names so
// operational commands can report their goroutine counters.
//
// Writers are the app wiring and the command manager; readers are status
// handlers running on arbitrary goroutines.
type SupervisorRegistry struct {
	mu   sync.RWMutex
	sups map[string]*Supervisor
}

func NewSupervisorRegistry() *SupervisorRegistry {
	return &SupervisorRegistry{sups: make(map[string]*Supervisor)}
}

// Set registers sup under name, replacing any previous entry. A nil sup
// removes the entry.
func (r *SupervisorRegistry) Set(name string, sup *Supervisor) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if sup == nil {
		delete(r.sups, name)
	} else {
		r.sups[name] = sup
	}
	r.mu.Unlock()
}

func (r *SupervisorRegistry) Delete(name string) {
	r.Set(name, nil)
}

// Names returns the registered subsystem names in sorted order.
func (r *SupervisorRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]string, 0, len(r.sups))
	for name := range r.sups {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Get returns the supervisor registered under name, or nil.
func (r *SupervisorRegistry) Get(name string) *Supervisor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sups[name]
}
