// Package acquisition implements acquisition functions for minimization
// problems. All functions are oriented so that larger values are more
// promising.
package acquisition

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/bayesopt/internal/solver"
)

// Names accepted by New.
const (
	NameExpectedImprovement      = "ei"
	NameProbabilityOfImprovement = "pi"
	NameLowerConfidenceBound     = "lcb"
)

// Params holds the exploration parameters of all acquisition functions.
type Params struct {
	Xi    float64
	Kappa float64
}

// DefaultParams returns xi=0.01 and kappa=2.
func DefaultParams() Params {
	return Params{Xi: 0.01, Kappa: 2}
}

// New creates an acquisition function by name.
func New(name string, p Params) (solver.AcquisitionFunction, error) {
	switch strings.ToLower(name) {
	case "", NameExpectedImprovement:
		return &ExpectedImprovement{Xi: p.Xi}, nil
	case NameProbabilityOfImprovement:
		return &ProbabilityOfImprovement{Xi: p.Xi}, nil
	case NameLowerConfidenceBound:
		return &LowerConfidenceBound{Kappa: p.Kappa}, nil
	default:
		return nil, fmt.Errorf("unknown acquisition function: %s", name)
	}
}

// bestObserver is implemented by models that expose their incumbent target.
type bestObserver interface {
	BestObserved() (float64, bool)
}

// binding holds the model an acquisition function was last updated with.
type binding struct {
	mu      sync.RWMutex
	model   solver.Model
	best    float64
	hasBest bool
}

func (b *binding) Update(m solver.Model) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.model = m
	b.best, b.hasBest = 0, false
	if bo, ok := m.(bestObserver); ok {
		b.best, b.hasBest = bo.BestObserved()
	}
}

func (b *binding) snapshot() (solver.Model, float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model, b.best, b.hasBest
}

func predict(m solver.Model, x []float64) (mean, std float64) {
	mean, variance := m.Predict(x)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// ExpectedImprovement over the best observed value, offset by Xi.
type ExpectedImprovement struct {
	Xi float64
	binding
}

// Evaluate returns 0 until the function is bound to a trained model.
func (a *ExpectedImprovement) Evaluate(x []float64) float64 {
	m, best, ok := a.snapshot()
	if m == nil || !ok {
		return 0
	}
	mean, std := predict(m, x)
	improvement := best - mean - a.Xi
	if std == 0 {
		return math.Max(improvement, 0)
	}
	z := improvement / std
	return improvement*distuv.UnitNormal.CDF(z) + std*distuv.UnitNormal.Prob(z)
}

// ProbabilityOfImprovement over the best observed value, offset by Xi.
type ProbabilityOfImprovement struct {
	Xi float64
	binding
}

// Evaluate returns 0 until the function is bound to a trained model.
func (a *ProbabilityOfImprovement) Evaluate(x []float64) float64 {
	m, best, ok := a.snapshot()
	if m == nil || !ok {
		return 0
	}
	mean, std := predict(m, x)
	improvement := best - mean - a.Xi
	if std == 0 {
		if improvement > 0 {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF(improvement / std)
}

// LowerConfidenceBound returns the negated bound mean - Kappa*std.
type LowerConfidenceBound struct {
	Kappa float64
	binding
}

// Evaluate returns 0 until the function is bound to a model.
func (a *LowerConfidenceBound) Evaluate(x []float64) float64 {
	m, _, _ := a.snapshot()
	if m == nil {
		return 0
	}
	mean, std := predict(m, x)
	return -(mean - a.Kappa*std)
}
