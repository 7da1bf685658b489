// Package task provides objective functions for the solver: an adapter for
// plain Go functions and a set of standard benchmarks.
package task

import (
	"fmt"
	"sort"
	"strings"
)

// Func adapts a scalar function over a box to solver.Task.
type Func struct {
	Name   string
	Lo, Hi []float64
	F      func(x []float64) float64

	// Optimum is the known global minimum value, if any
	Optimum *float64
}

// NewFunc creates a task from f over [lower, upper].
func NewFunc(name string, lower, upper []float64, f func([]float64) float64) (*Func, error) {
	if len(lower) == 0 || len(lower) != len(upper) {
		return nil, fmt.Errorf("invalid bounds: lower=%d upper=%d dimensions", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("invalid bounds: lower > upper in dimension %d", i)
		}
	}
	if f == nil {
		return nil, fmt.Errorf("objective function is nil")
	}
	return &Func{
		Name: name,
		Lo:   append([]float64(nil), lower...),
		Hi:   append([]float64(nil), upper...),
		F:    f,
	}, nil
}

func (t *Func) Lower() []float64 { return t.Lo }
func (t *Func) Upper() []float64 { return t.Hi }
func (t *Func) NDims() int       { return len(t.Lo) }

// Evaluate returns one value per row of x.
func (t *Func) Evaluate(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(t.Lo) {
			return nil, fmt.Errorf("%s: row %d has %d dimensions, expected %d", t.Name, i, len(row), len(t.Lo))
		}
		out[i] = t.F(row)
	}
	return out, nil
}

type factory func(dims int) (*Func, error)

var registry = map[string]factory{
	"branin":    func(int) (*Func, error) { return Branin(), nil },
	"forrester": func(int) (*Func, error) { return Forrester(), nil },
	"hartmann3": func(int) (*Func, error) { return Hartmann3(), nil },
	"sphere":    Sphere,
	"constant":  func(dims int) (*Func, error) { return Constant(dims, 0) },
}

// fixedDims lists benchmarks whose dimensionality cannot be chosen.
var fixedDims = map[string]int{
	"branin":    2,
	"forrester": 1,
	"hartmann3": 3,
}

// New creates a registered task. dims is ignored for fixed-size benchmarks
// unless it contradicts their size.
func New(name string, dims int) (*Func, error) {
	name = strings.ToLower(name)
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown task: %s (available: %s)", name, strings.Join(Names(), ", "))
	}
	if want, fixed := fixedDims[name]; fixed && dims != 0 && dims != want {
		return nil, fmt.Errorf("task %s has %d dimensions, got %d", name, want, dims)
	}
	return f(dims)
}

// Names lists the registered tasks.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
