package models

import (
	"fmt"
	"sort"

	"github.com/voltlab/voltsim/internal/symbolic"
)

// Registry maps model names to builders so the CLI can construct
// systems by name.
type Registry struct {
	builders map[string]func() *symbolic.Model
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]func() *symbolic.Model)}

	r.builders["decay"] = Decay
	r.builders["growth"] = func() *symbolic.Model { return Growth(0.1) }
	r.builders["oscillator"] = func() *symbolic.Model { return Oscillator(1.0) }
	r.builders["diffusion"] = func() *symbolic.Model { return DiffusionChain(20) }

	return r
}

func (r *Registry) Register(name string, build func() *symbolic.Model) {
	r.builders[name] = build
}

func (r *Registry) Get(name string) (*symbolic.Model, error) {
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s (available: %v)", name, r.List())
	}
	return build(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
