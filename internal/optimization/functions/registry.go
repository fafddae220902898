package functions

import (
	"sort"
	"sync"

	gonumfunctions "gonum.org/v1/gonum/optimize/functions"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// Definition describes a registered objective.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Dimension is the required dimension, or 0 when any is accepted.
	Dimension int `json:"dimension"`
	// DefaultStart is the conventional starting point.
	DefaultStart []float64 `json:"default_start"`
	// Minimum is the known global minimizer, if any.
	Minimum []float64 `json:"minimum,omitempty"`

	// New returns an unevaluated objective.
	New func() optimization.HessianObjectiveFunction `json:"-"`
}

// CheckDimension fails with KindInvalidArgument when n does not fit d.
func (d Definition) CheckDimension(n int) error {
	if n == 0 || (d.Dimension != 0 && n != d.Dimension) {
		return optimization.NewErrorf(optimization.KindInvalidArgument,
			"function %q needs a point of dimension %d, got %d", d.Name, d.Dimension, n).
			WithComponent("functions")
	}
	return nil
}

// Registry maps names to objective definitions. It is safe for concurrent
// use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds d. Names must be unique and New must be set.
func (r *Registry) Register(d Definition) error {
	if d.Name == "" || d.New == nil {
		return optimization.NewError(optimization.KindInvalidArgument, "definition needs a name and a constructor").
			WithComponent("functions")
	}
	if d.Dimension != 0 && len(d.DefaultStart) != d.Dimension {
		return optimization.NewErrorf(optimization.KindInvalidArgument,
			"default start of %q has dimension %d, want %d", d.Name, len(d.DefaultStart), d.Dimension).
			WithComponent("functions")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[d.Name]; ok {
		return optimization.NewErrorf(optimization.KindInvalidArgument, "function %q already registered", d.Name).
			WithComponent("functions")
	}
	r.defs[d.Name] = d
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every definition sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.defs[name])
	}
	return defs
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in objectives.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, d := range builtins() {
			if err := defaultRegistry.Register(d); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

func builtins() []Definition {
	return []Definition{
		{
			Name:         "rosenbrock",
			Description:  "Rosenbrock banana function (1-x)^2 + 100(y-x^2)^2",
			Dimension:    2,
			DefaultStart: []float64{-1.2, 1},
			Minimum:      []float64{1, 1},
			New:          func() optimization.HessianObjectiveFunction { return NewRosenbrock() },
		},
		{
			Name:         "rosenbrock-lazy",
			Description:  "Rosenbrock function with lazily computed derivatives",
			Dimension:    2,
			DefaultStart: []float64{-1.2, 1},
			Minimum:      []float64{1, 1},
			New:          func() optimization.HessianObjectiveFunction { return NewLazyRosenbrock() },
		},
		{
			Name:         "sphere",
			Description:  "Sum of squares in any dimension",
			DefaultStart: []float64{1, 1, 1},
			New:          func() optimization.HessianObjectiveFunction { return NewSphere() },
		},
		{
			Name:         "wood",
			Description:  "Wood's four dimensional function",
			Dimension:    4,
			DefaultStart: []float64{-3, -1, -3, -1},
			Minimum:      []float64{1, 1, 1, 1},
			New:          func() optimization.HessianObjectiveFunction { return FromGonum(gonumfunctions.Wood{}) },
		},
		{
			Name:         "brown-badly-scaled",
			Description:  "Brown's badly scaled function",
			Dimension:    2,
			DefaultStart: []float64{1, 1},
			Minimum:      []float64{1e6, 2e-6},
			New:          func() optimization.HessianObjectiveFunction { return FromGonum(gonumfunctions.BrownBadlyScaled{}) },
		},
		{
			Name:         "powell-badly-scaled",
			Description:  "Powell's badly scaled function",
			Dimension:    2,
			DefaultStart: []float64{0, 1},
			Minimum:      []float64{1.0981593296997149e-05, 9.106146739867375},
			New:          func() optimization.HessianObjectiveFunction { return FromGonum(gonumfunctions.PowellBadlyScaled{}) },
		},
	}
}
