// Package maximizer searches the task domain for the point with the highest
// acquisition value.
package maximizer

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cwbudde/bayesopt/internal/solver"
)

// Names accepted by New.
const (
	NameMayfly       = "mayfly"
	NameRandomSearch = "random"
)

// Options configures the maximizers built by New.
type Options struct {
	// Mayfly
	Iterations int
	Population int

	// RandomSearch
	Candidates int

	Seed int64
}

// DefaultOptions returns 50 mayfly iterations with a population of 20 and
// 1000 random search candidates.
func DefaultOptions() Options {
	return Options{Iterations: 50, Population: 20, Candidates: 1000}
}

// New creates a maximizer by name for acq over [lower, upper].
func New(name string, acq solver.AcquisitionFunction, lower, upper []float64, opts Options) (solver.Maximizer, error) {
	if err := checkBounds(lower, upper); err != nil {
		return nil, err
	}
	switch strings.ToLower(name) {
	case "", NameMayfly:
		return NewMayfly(acq, lower, upper, opts.Iterations, opts.Population, opts.Seed), nil
	case NameRandomSearch:
		return NewRandomSearch(acq, lower, upper, opts.Candidates, opts.Seed), nil
	default:
		return nil, fmt.Errorf("unknown maximizer: %s", name)
	}
}

func checkBounds(lower, upper []float64) error {
	if len(lower) == 0 || len(lower) != len(upper) {
		return fmt.Errorf("invalid bounds: lower=%d upper=%d dimensions", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return fmt.Errorf("invalid bounds: lower > upper in dimension %d", i)
		}
	}
	return nil
}

// toBounds maps u from the unit cube onto [lower, upper], clamping u first.
func toBounds(u, lower, upper []float64) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		x[i] = lower[i] + v*(upper[i]-lower[i])
	}
	return x
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
