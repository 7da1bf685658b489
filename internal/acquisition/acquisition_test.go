package acquisition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadraticModel predicts (x-0.5)^2 with a fixed variance.
type quadraticModel struct {
	variance float64
	best     float64
}

func (m *quadraticModel) Train(x [][]float64, y []float64) error { return nil }

func (m *quadraticModel) Predict(x []float64) (float64, float64) {
	d := x[0] - 0.5
	return d * d, m.variance
}

func (m *quadraticModel) BestObserved() (float64, bool) { return m.best, true }

func TestNew(t *testing.T) {
	for _, name := range []string{"ei", "PI", "lcb", ""} {
		a, err := New(name, DefaultParams())
		require.NoError(t, err, name)
		assert.NotNil(t, a)
	}

	_, err := New("ucb-magic", DefaultParams())
	assert.Error(t, err)
}

func TestZeroBeforeUpdate(t *testing.T) {
	for _, name := range []string{"ei", "pi", "lcb"} {
		a, err := New(name, DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, 0.0, a.Evaluate([]float64{0.3}), name)
	}
}

func TestExpectedImprovementPrefersLowMean(t *testing.T) {
	a := &ExpectedImprovement{Xi: 0.01}
	a.Update(&quadraticModel{variance: 0.04, best: 0.1})

	center := a.Evaluate([]float64{0.5})
	edge := a.Evaluate([]float64{0.0})
	assert.Greater(t, center, edge)
	assert.GreaterOrEqual(t, edge, 0.0)
}

func TestExpectedImprovementZeroVariance(t *testing.T) {
	a := &ExpectedImprovement{}
	a.Update(&quadraticModel{variance: 0, best: 0.5})

	assert.InDelta(t, 0.5, a.Evaluate([]float64{0.5}), 1e-12)
	assert.Equal(t, 0.0, a.Evaluate([]float64{-1}))
}

func TestExpectedImprovementClosedForm(t *testing.T) {
	a := &ExpectedImprovement{}
	a.Update(&quadraticModel{variance: 1, best: 0})

	// mean 0 at the center, z = 0: EI = std * phi(0)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), a.Evaluate([]float64{0.5}), 1e-9)
}

func TestProbabilityOfImprovement(t *testing.T) {
	a := &ProbabilityOfImprovement{}
	a.Update(&quadraticModel{variance: 1, best: 0})

	assert.InDelta(t, 0.5, a.Evaluate([]float64{0.5}), 1e-9)
	v := a.Evaluate([]float64{2})
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 0.5)
}

func TestLowerConfidenceBound(t *testing.T) {
	a := &LowerConfidenceBound{Kappa: 2}
	a.Update(&quadraticModel{variance: 0.25})

	// mean 0, std 0.5
	assert.InDelta(t, 1.0, a.Evaluate([]float64{0.5}), 1e-12)
	assert.Greater(t, a.Evaluate([]float64{0.5}), a.Evaluate([]float64{1.5}))
}

func TestImprovementNeedsBestObserved(t *testing.T) {
	m := quadraticModelNoBest{}
	ei := &ExpectedImprovement{}
	ei.Update(m)
	assert.Equal(t, 0.0, ei.Evaluate([]float64{0.5}))

	lcb := &LowerConfidenceBound{Kappa: 1}
	lcb.Update(m)
	assert.NotEqual(t, 0.0, lcb.Evaluate([]float64{0.5}))
}

// quadraticModelNoBest does not expose a best observed value.
type quadraticModelNoBest struct{}

func (quadraticModelNoBest) Train(x [][]float64, y []float64) error { return nil }

func (quadraticModelNoBest) Predict(x []float64) (float64, float64) {
	d := x[0] - 0.5
	return d * d, 1
}
