package solver

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

// argmin returns the index of the smallest value; ties go to the first
// occurrence.
func argmin[T constraints.Ordered](values []T) (int, error) {
	if len(values) == 0 {
		return -1, ErrEmptyObservations
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[best] {
			best = i
		}
	}
	return best, nil
}

// uniform draws one point uniformly within [lower, upper].
func uniform(lower, upper []float64, rng *rand.Rand) []float64 {
	x := make([]float64, len(lower))
	for i := range lower {
		x[i] = lower[i] + rng.Float64()*(upper[i]-lower[i])
	}
	return x
}

func cloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = cloneVec(r)
	}
	return out
}
