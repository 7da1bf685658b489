package solver

import "math/rand"

// LatinHypercube draws a stratified initial design: each dimension is split
// into n equal strata and every stratum is used exactly once.
type LatinHypercube struct{}

// Points implements Initializer.
func (LatinHypercube) Points(n int, lower, upper []float64, rng *rand.Rand) [][]float64 {
	dims := len(lower)
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, dims)
	}

	strata := make([]float64, n)
	for i := 0; i < dims; i++ {
		for j := 0; j < n; j++ {
			strata[j] = (float64(j) + rng.Float64()) / float64(n)
		}
		rng.Shuffle(n, func(a, b int) {
			strata[a], strata[b] = strata[b], strata[a]
		})
		for j := 0; j < n; j++ {
			samples[j][i] = lower[i] + strata[j]*(upper[i]-lower[i])
		}
	}

	return samples
}
