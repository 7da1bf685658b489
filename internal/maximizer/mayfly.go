package maximizer

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/bayesopt/internal/solver"
)

// minPopulation is the smallest population mayfly accepts.
const minPopulation = 20

// Mayfly maximizes an acquisition function with the mayfly swarm optimizer.
type Mayfly struct {
	acq          solver.AcquisitionFunction
	lower, upper []float64
	maxIters     int
	popSize      int
	rng          *rand.Rand
}

// NewMayfly creates a Mayfly maximizer. Each Maximize call draws a fresh
// seed from a generator seeded with seed.
func NewMayfly(acq solver.AcquisitionFunction, lower, upper []float64, maxIters, popSize int, seed int64) *Mayfly {
	if maxIters <= 0 {
		maxIters = 50
	}
	if popSize < minPopulation {
		popSize = minPopulation
	}
	return &Mayfly{
		acq:      acq,
		lower:    append([]float64(nil), lower...),
		upper:    append([]float64(nil), upper...),
		maxIters: maxIters,
		popSize:  popSize,
		rng:      newRand(seed),
	}
}

// Maximize implements solver.Maximizer.
func (m *Mayfly) Maximize() ([]float64, error) {
	dim := len(m.lower)

	config := mayfly.NewDefaultConfig()

	// mayfly minimizes over scalar bounds, so search the negated acquisition
	// on the unit cube and map back
	config.ObjectiveFunc = func(u []float64) float64 {
		return -m.acq.Evaluate(toBounds(u, m.lower, m.upper))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.rng.Int63()))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly: %w", err)
	}

	return toBounds(result.GlobalBest.Position, m.lower, m.upper), nil
}
