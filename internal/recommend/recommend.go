// Package recommend selects the incumbent by minimizing a statistic of the
// model posterior.
package recommend

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/bayesopt/internal/solver"
)

// Names accepted by New.
const (
	NameMeanAndStd = "posterior-mean-and-std"
	NameMean       = "posterior-mean"
)

// ErrNoStarts is returned when Recommend is called without start points.
var ErrNoStarts = errors.New("no start points")

const defaultMaxIterations = 100

// New creates a recommender by name.
func New(name string, kappa float64) (solver.Recommender, error) {
	switch strings.ToLower(name) {
	case "", NameMeanAndStd:
		return PosteriorMeanAndStd{Kappa: kappa}, nil
	case NameMean:
		return PosteriorMean{}, nil
	default:
		return nil, fmt.Errorf("unknown recommender: %s", name)
	}
}

// PosteriorMeanAndStd minimizes mean + Kappa*std of the posterior.
type PosteriorMeanAndStd struct {
	Kappa         float64
	MaxIterations int
}

// Recommend implements solver.Recommender.
func (r PosteriorMeanAndStd) Recommend(m solver.Model, lower, upper []float64, starts [][]float64, withGradients bool) ([]float64, float64, error) {
	objective := func(x []float64) float64 {
		mean, variance := m.Predict(x)
		return mean + r.Kappa*math.Sqrt(math.Max(variance, 0))
	}
	return recommend(m, objective, lower, upper, starts, withGradients, r.MaxIterations)
}

// PosteriorMean minimizes the posterior mean.
type PosteriorMean struct {
	MaxIterations int
}

// Recommend implements solver.Recommender.
func (r PosteriorMean) Recommend(m solver.Model, lower, upper []float64, starts [][]float64, withGradients bool) ([]float64, float64, error) {
	objective := func(x []float64) float64 {
		mean, _ := m.Predict(x)
		return mean
	}
	return recommend(m, objective, lower, upper, starts, withGradients, r.MaxIterations)
}

// recommend minimizes objective from every start inside the bounds and
// returns the best point with the model's predicted mean there.
func recommend(m solver.Model, objective func([]float64) float64, lower, upper []float64, starts [][]float64, withGradients bool, maxIters int) ([]float64, float64, error) {
	if len(starts) == 0 {
		return nil, 0, ErrNoStarts
	}
	if len(lower) != len(upper) {
		return nil, 0, fmt.Errorf("bounds length mismatch: lower=%d upper=%d", len(lower), len(upper))
	}
	if maxIters <= 0 {
		maxIters = defaultMaxIterations
	}

	// the optimizers are unconstrained; evaluate at the projection
	bounded := func(x []float64) float64 {
		return objective(clampVec(x, lower, upper))
	}

	problem := optimize.Problem{Func: bounded}
	var method optimize.Method = &optimize.NelderMead{}
	if withGradients {
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, bounded, x, &fd.Settings{Formula: fd.Central})
		}
		method = &optimize.LBFGS{}
	}

	var (
		best      []float64
		bestValue float64
	)
	for i, start := range starts {
		if len(start) != len(lower) {
			return nil, 0, fmt.Errorf("start %d has %d dimensions, expected %d", i, len(start), len(lower))
		}
		x0 := clampVec(start, lower, upper)

		candidate, value := x0, objective(x0)

		// failures such as line search errors still carry the best location
		result, _ := optimize.Minimize(problem, x0, &optimize.Settings{MajorIterations: maxIters}, method)
		if result != nil {
			x := clampVec(result.X, lower, upper)
			if v := objective(x); v < value {
				candidate, value = x, v
			}
		}

		if best == nil || value < bestValue {
			best, bestValue = candidate, value
		}
	}

	mean, _ := m.Predict(best)
	return best, mean, nil
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampVec(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = clamp(v, lower[i], upper[i])
	}
	return out
}
