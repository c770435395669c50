package batch

import (
	"fmt"
	"sort"
	"sync"
)

// StepFunc is the body of one pipeline step. Returning nil completes the
// step, ErrStopped records it stopped, anything else fails the execution.
type StepFunc func(sc *StepContext) error

type StepDefinition struct {
	Name    string
	Handler StepFunc
}

// JobDefinition is a named, ordered pipeline plus its declared parameters.
type JobDefinition struct {
	Name          string
	Steps         []StepDefinition
	ParameterKeys []ParameterKey
}

type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*JobDefinition
}

func NewRegistry() *Registry {
	return &Registry{jobs: map[string]*JobDefinition{}}
}

func (r *Registry) Register(def *JobDefinition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("job definition requires a name")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("job %q requires at least one step", def.Name)
	}
	seen := map[string]bool{}
	for _, step := range def.Steps {
		if step.Name == "" || step.Handler == nil {
			return fmt.Errorf("job %q has a step without name or handler", def.Name)
		}
		if seen[step.Name] {
			return fmt.Errorf("job %q declares step %q twice", def.Name, step.Name)
		}
		seen[step.Name] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[def.Name]; exists {
		return fmt.Errorf("job %q already registered", def.Name)
	}
	r.jobs[def.Name] = def
	return nil
}

func (r *Registry) Lookup(name string) (*JobDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.jobs[name]
	return def, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
