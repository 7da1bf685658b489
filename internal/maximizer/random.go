package maximizer

import (
	"math/rand"

	"github.com/cwbudde/bayesopt/internal/solver"
)

// RandomSearch evaluates uniformly drawn candidates and keeps the best.
type RandomSearch struct {
	acq          solver.AcquisitionFunction
	lower, upper []float64
	candidates   int
	rng          *rand.Rand
}

// NewRandomSearch creates a RandomSearch maximizer.
func NewRandomSearch(acq solver.AcquisitionFunction, lower, upper []float64, candidates int, seed int64) *RandomSearch {
	if candidates <= 0 {
		candidates = 1000
	}
	return &RandomSearch{
		acq:        acq,
		lower:      append([]float64(nil), lower...),
		upper:      append([]float64(nil), upper...),
		candidates: candidates,
		rng:        newRand(seed),
	}
}

// Maximize implements solver.Maximizer.
func (r *RandomSearch) Maximize() ([]float64, error) {
	var (
		best      []float64
		bestValue float64
	)
	u := make([]float64, len(r.lower))
	for i := 0; i < r.candidates; i++ {
		for d := range u {
			u[d] = r.rng.Float64()
		}
		x := toBounds(u, r.lower, r.upper)
		if v := r.acq.Evaluate(x); best == nil || v > bestValue {
			best, bestValue = x, v
		}
	}
	return best, nil
}
